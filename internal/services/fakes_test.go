package services

import (
	"context"
	"errors"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"samaj/internal/models"
)

// In-memory repository and gateway fakes shared by the service tests.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[primitive.ObjectID]*models.User)}
}

func (r *fakeUserRepo) add(user *models.User) *models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	r.users[user.ID] = user
	return user
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	for _, u := range r.users {
		if u.Email == user.Email || u.EmployeeID == user.EmployeeID || u.MobileNumber == user.MobileNumber {
			r.mu.Unlock()
			return nil, mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000}}}
		}
	}
	r.users[user.ID] = user
	r.mu.Unlock()
	return user, nil
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) FindByMobileNumber(ctx context.Context, mobileNumber string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.MobileNumber == mobileNumber {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) FindByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		c := *u
		return &c, nil
	}
	return nil, nil
}

func (r *fakeUserRepo) FindByRefreshToken(ctx context.Context, refreshToken string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.RefreshToken != "" && u.RefreshToken == refreshToken {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) FindAll(ctx context.Context) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	users := make([]models.User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, *u)
	}
	return users, nil
}

func (r *fakeUserRepo) Update(ctx context.Context, userID primitive.ObjectID, updateFields bson.M) (*mongo.UpdateResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return &mongo.UpdateResult{MatchedCount: 0}, nil
	}
	if rt, ok := updateFields["refresh_token"]; ok {
		u.RefreshToken = rt.(string)
	}
	if email, ok := updateFields["email"]; ok {
		u.Email = email.(string)
	}
	if username, ok := updateFields["username"]; ok {
		u.Username = username.(string)
	}
	if password, ok := updateFields["password"]; ok {
		u.Password = password.(string)
	}
	return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}

func (r *fakeUserRepo) SetRefreshToken(ctx context.Context, userID primitive.ObjectID, refreshToken string) error {
	_, err := r.Update(ctx, userID, bson.M{"refresh_token": refreshToken})
	return err
}

func (r *fakeUserRepo) ClearRefreshToken(ctx context.Context, userID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		u.RefreshToken = ""
	}
	return nil
}

func (r *fakeUserRepo) Delete(ctx context.Context, userID primitive.ObjectID) (*mongo.DeleteResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[userID]; !ok {
		return &mongo.DeleteResult{DeletedCount: 0}, nil
	}
	delete(r.users, userID)
	return &mongo.DeleteResult{DeletedCount: 1}, nil
}

func (r *fakeUserRepo) CountAll(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.users)), nil
}

func (r *fakeUserRepo) EnsureIndexes(ctx context.Context) error { return nil }

type fakeOTPRepo struct {
	mu   sync.Mutex
	otps map[primitive.ObjectID]*models.OTP
}

func newFakeOTPRepo() *fakeOTPRepo {
	return &fakeOTPRepo{otps: make(map[primitive.ObjectID]*models.OTP)}
}

func (r *fakeOTPRepo) Create(ctx context.Context, otp *models.OTP) (*models.OTP, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	otp.ID = primitive.NewObjectID()
	c := *otp
	r.otps[otp.ID] = &c
	return otp, nil
}

func (r *fakeOTPRepo) FindByID(ctx context.Context, otpID primitive.ObjectID, method models.DeliveryMethod) (*models.OTP, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.otps[otpID]; ok && o.DeliveryMethod == method {
		c := *o
		return &c, nil
	}
	return nil, nil
}

func (r *fakeOTPRepo) FindByCode(ctx context.Context, code string, method models.DeliveryMethod) (*models.OTP, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.otps {
		if o.Code == code && o.DeliveryMethod == method {
			c := *o
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeOTPRepo) DeleteByID(ctx context.Context, otpID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.otps, otpID)
	return nil
}

func (r *fakeOTPRepo) DeleteByIdentifier(ctx context.Context, identifier string, method models.DeliveryMethod) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, o := range r.otps {
		if o.Identifier == identifier && o.DeliveryMethod == method {
			delete(r.otps, id)
		}
	}
	return nil
}

func (r *fakeOTPRepo) EnsureIndexes(ctx context.Context) error { return nil }

func (r *fakeOTPRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.otps)
}

type fakeEmailService struct {
	mu       sync.Mutex
	fail     bool
	sent     []string
	lastBody string
}

func (e *fakeEmailService) SendEmail(to, subject, msg string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fail {
		return errors.New("smtp: connection refused")
	}
	e.sent = append(e.sent, to)
	e.lastBody = msg
	return nil
}

type fakeSMSGateway struct {
	mu            sync.Mutex
	requestFail   bool
	confirmReject string // non-empty: ConfirmOTP fails with this gateway message
	token         string
	expectedCode  string
	mobileNumber  string
}

func (g *fakeSMSGateway) RequestOTP(ctx context.Context, mobileNumber string) (*OTPRequestResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.requestFail {
		return nil, &GatewayError{Message: "subscriber not reachable"}
	}
	g.mobileNumber = mobileNumber
	return &OTPRequestResult{Token: g.token, Message: "OTP sent via SMS"}, nil
}

func (g *fakeSMSGateway) ConfirmOTP(ctx context.Context, token, code string) (*OTPConfirmResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.confirmReject != "" {
		return nil, &GatewayError{Message: g.confirmReject}
	}
	if token != g.token || code != g.expectedCode {
		return nil, &GatewayError{Message: "invalid code"}
	}
	return &OTPConfirmResult{MobileNumber: g.mobileNumber, Message: "OTP confirmed"}, nil
}
