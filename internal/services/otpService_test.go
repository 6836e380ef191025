package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"samaj/internal/apperrors"
	"samaj/internal/models"
)

func newOTPTestStack() (*fakeUserRepo, *fakeOTPRepo, *fakeEmailService, *fakeSMSGateway, OTPService) {
	userRepo := newFakeUserRepo()
	otpRepo := newFakeOTPRepo()
	email := &fakeEmailService{}
	sms := &fakeSMSGateway{token: "gw-token-1", expectedCode: "424242"}
	svc := NewOTPService(userRepo, otpRepo, email, sms)
	return userRepo, otpRepo, email, sms, svc
}

func testMember() *models.User {
	return &models.User{
		ID:           primitive.NewObjectID(),
		Username:     "ramprasad",
		Email:        "ram@example.com",
		MobileNumber: "9841000001",
		Role:         models.RoleUser,
	}
}

func (r *fakeOTPRepo) storedCode(t *testing.T, token string) string {
	t.Helper()
	id, err := primitive.ObjectIDFromHex(token)
	require.NoError(t, err)
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.otps[id]
	require.True(t, ok, "challenge record not found")
	return record.Code
}

func (r *fakeOTPRepo) forceExpire(t *testing.T, token string) {
	t.Helper()
	id, err := primitive.ObjectIDFromHex(token)
	require.NoError(t, err)
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.otps[id]
	require.True(t, ok, "challenge record not found")
	record.Expiry = time.Now().Add(-time.Second)
}

func TestSendLoginOTPEmail(t *testing.T) {
	userRepo, otpRepo, email, _, svc := newOTPTestStack()
	user := userRepo.add(testMember())

	handle, err := svc.SendLoginOTP(context.Background(), user, models.DeliveryEmail)
	require.NoError(t, err)

	assert.Equal(t, user.Email, handle.Identifier)
	assert.Equal(t, models.DeliveryEmail, handle.DeliveryMethod)
	assert.NotEmpty(t, handle.Token)
	assert.Equal(t, []string{user.Email}, email.sent)
	assert.Equal(t, 1, otpRepo.count())

	code := otpRepo.storedCode(t, handle.Token)
	assert.Len(t, code, 6)
	assert.Contains(t, email.lastBody, code)
}

func TestSendLoginOTPInvalidMethod(t *testing.T) {
	userRepo, _, _, _, svc := newOTPTestStack()
	user := userRepo.add(testMember())

	_, err := svc.SendLoginOTP(context.Background(), user, models.DeliveryMethod("carrier-pigeon"))
	require.Error(t, err)
	assert.Equal(t, 400, apperrors.StatusOf(err))
}

func TestSendLoginOTPMissingChannelIdentifier(t *testing.T) {
	userRepo, otpRepo, _, _, svc := newOTPTestStack()
	member := testMember()
	member.MobileNumber = ""
	user := userRepo.add(member)

	_, err := svc.SendLoginOTP(context.Background(), user, models.DeliverySMS)
	require.Error(t, err)
	assert.Equal(t, 400, apperrors.StatusOf(err))
	assert.Equal(t, 0, otpRepo.count())
}

func TestSendLoginOTPSupersedesPriorChallenge(t *testing.T) {
	userRepo, otpRepo, _, _, svc := newOTPTestStack()
	user := userRepo.add(testMember())
	ctx := context.Background()

	first, err := svc.SendLoginOTP(ctx, user, models.DeliveryEmail)
	require.NoError(t, err)
	firstCode := otpRepo.storedCode(t, first.Token)

	second, err := svc.SendLoginOTP(ctx, user, models.DeliveryEmail)
	require.NoError(t, err)

	// Only the second challenge is live.
	assert.Equal(t, 1, otpRepo.count())

	_, err = svc.VerifyLoginOTP(ctx, first.Token, firstCode, models.DeliveryEmail)
	require.Error(t, err)
	assert.Equal(t, 404, apperrors.StatusOf(err))

	secondCode := otpRepo.storedCode(t, second.Token)
	verified, err := svc.VerifyLoginOTP(ctx, second.Token, secondCode, models.DeliveryEmail)
	require.NoError(t, err)
	assert.Equal(t, user.Email, verified.Email)
}

func TestSendLoginOTPRollsBackOnDeliveryFailure(t *testing.T) {
	userRepo, otpRepo, email, _, svc := newOTPTestStack()
	user := userRepo.add(testMember())
	email.fail = true

	_, err := svc.SendLoginOTP(context.Background(), user, models.DeliveryEmail)
	require.Error(t, err)
	assert.Equal(t, 500, apperrors.StatusOf(err))

	// The undelivered challenge must not survive the failed send.
	assert.Equal(t, 0, otpRepo.count())
}

func TestVerifyLoginOTPEmail(t *testing.T) {
	userRepo, otpRepo, _, _, svc := newOTPTestStack()
	user := userRepo.add(testMember())
	ctx := context.Background()

	handle, err := svc.SendLoginOTP(ctx, user, models.DeliveryEmail)
	require.NoError(t, err)
	code := otpRepo.storedCode(t, handle.Token)

	verified, err := svc.VerifyLoginOTP(ctx, handle.Token, code, models.DeliveryEmail)
	require.NoError(t, err)
	assert.Equal(t, user.ID, verified.ID)

	// Single use: the same token is dead after a successful verification.
	_, err = svc.VerifyLoginOTP(ctx, handle.Token, code, models.DeliveryEmail)
	require.Error(t, err)
	assert.Equal(t, 404, apperrors.StatusOf(err))
}

func TestVerifyLoginOTPCodeMismatch(t *testing.T) {
	userRepo, otpRepo, _, _, svc := newOTPTestStack()
	user := userRepo.add(testMember())
	ctx := context.Background()

	handle, err := svc.SendLoginOTP(ctx, user, models.DeliveryEmail)
	require.NoError(t, err)
	code := otpRepo.storedCode(t, handle.Token)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	_, err = svc.VerifyLoginOTP(ctx, handle.Token, wrong, models.DeliveryEmail)
	require.Error(t, err)
	assert.Equal(t, 400, apperrors.StatusOf(err))
	assert.EqualError(t, err, "OTP does not match")

	// A mismatch does not consume the challenge.
	verified, err := svc.VerifyLoginOTP(ctx, handle.Token, code, models.DeliveryEmail)
	require.NoError(t, err)
	assert.Equal(t, user.Email, verified.Email)
}

func TestVerifyLoginOTPExpired(t *testing.T) {
	userRepo, otpRepo, _, _, svc := newOTPTestStack()
	user := userRepo.add(testMember())
	ctx := context.Background()

	handle, err := svc.SendLoginOTP(ctx, user, models.DeliveryEmail)
	require.NoError(t, err)
	code := otpRepo.storedCode(t, handle.Token)
	otpRepo.forceExpire(t, handle.Token)

	_, err = svc.VerifyLoginOTP(ctx, handle.Token, code, models.DeliveryEmail)
	require.Error(t, err)
	assert.Equal(t, 400, apperrors.StatusOf(err))
	assert.EqualError(t, err, "OTP has expired")

	// The stale record is deleted as a side effect; a retry reports not found.
	_, err = svc.VerifyLoginOTP(ctx, handle.Token, code, models.DeliveryEmail)
	assert.Equal(t, 404, apperrors.StatusOf(err))
}

func TestVerifyLoginOTPUnknownToken(t *testing.T) {
	_, _, _, _, svc := newOTPTestStack()

	_, err := svc.VerifyLoginOTP(context.Background(), primitive.NewObjectID().Hex(), "123456", models.DeliveryEmail)
	require.Error(t, err)
	assert.Equal(t, 404, apperrors.StatusOf(err))

	_, err = svc.VerifyLoginOTP(context.Background(), "not-an-object-id", "123456", models.DeliveryEmail)
	assert.Equal(t, 404, apperrors.StatusOf(err))
}

func TestSendAndVerifyLoginOTPSMS(t *testing.T) {
	userRepo, otpRepo, _, sms, svc := newOTPTestStack()
	user := userRepo.add(testMember())
	ctx := context.Background()

	handle, err := svc.SendLoginOTP(ctx, user, models.DeliverySMS)
	require.NoError(t, err)
	assert.Equal(t, sms.token, handle.Token)
	assert.Equal(t, user.MobileNumber, handle.Identifier)
	assert.Equal(t, 1, otpRepo.count())

	verified, err := svc.VerifyLoginOTP(ctx, handle.Token, sms.expectedCode, models.DeliverySMS)
	require.NoError(t, err)
	assert.Equal(t, user.ID, verified.ID)

	// Consumed: replay fails with not found.
	_, err = svc.VerifyLoginOTP(ctx, handle.Token, sms.expectedCode, models.DeliverySMS)
	assert.Equal(t, 404, apperrors.StatusOf(err))
}

func TestSendLoginOTPSMSGatewayFailure(t *testing.T) {
	userRepo, otpRepo, _, sms, svc := newOTPTestStack()
	user := userRepo.add(testMember())
	sms.requestFail = true

	_, err := svc.SendLoginOTP(context.Background(), user, models.DeliverySMS)
	require.Error(t, err)
	assert.Equal(t, 500, apperrors.StatusOf(err))

	// Nothing was persisted for the failed gateway call.
	assert.Equal(t, 0, otpRepo.count())
}

func TestVerifyLoginOTPSMSGatewayReject(t *testing.T) {
	userRepo, otpRepo, _, sms, svc := newOTPTestStack()
	user := userRepo.add(testMember())
	ctx := context.Background()

	handle, err := svc.SendLoginOTP(ctx, user, models.DeliverySMS)
	require.NoError(t, err)

	sms.confirmReject = "code expired at gateway"
	_, err = svc.VerifyLoginOTP(ctx, handle.Token, "999999", models.DeliverySMS)
	require.Error(t, err)
	assert.Equal(t, 400, apperrors.StatusOf(err))
	assert.EqualError(t, err, "code expired at gateway")

	// Gateway rejection kills the local record too.
	assert.Equal(t, 0, otpRepo.count())
}
