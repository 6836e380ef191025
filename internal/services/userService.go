package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"samaj/internal/apperrors"
	"samaj/internal/metrics"
	"samaj/internal/models"
	"samaj/internal/repositories"
)

const bcryptCost = 10

// UserService defines the business logic for member registration and
// administration.
type UserService interface {
	RegisterUser(ctx context.Context, user *models.User) (*models.User, error)
	GetAllUsers(ctx context.Context) ([]models.User, error)
	GetUserByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error)
	UpdateUser(ctx context.Context, userID primitive.ObjectID, updatePayload *models.UserProfileUpdate) (*models.User, error)
	DeleteUser(ctx context.Context, userID primitive.ObjectID) error
}

type userService struct {
	userRepo repositories.UserRepository
}

func NewUserService(userRepo repositories.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func parseObjectID(hex string) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(hex)
}

// RegisterUser creates a membership record. The uniqueness of employee id,
// email, mobile number and membership/registration numbers is enforced by
// the collection's indexes; a duplicate surfaces as a 409.
func (s *userService) RegisterUser(ctx context.Context, user *models.User) (*models.User, error) {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.EmployeeID = strings.ToLower(strings.TrimSpace(user.EmployeeID))
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	user.MobileNumber = strings.TrimSpace(user.MobileNumber)

	if user.EmployeeID == "" || user.Username == "" || user.Email == "" || user.Password == "" ||
		user.MobileNumber == "" || user.MembershipNumber == "" {
		log.Warn().Msg("Missing required fields for member registration")
		return nil, apperrors.BadRequest("employeeId, username, email, password, mobileNumber and membershipNumber are required")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcryptCost)
	if err != nil {
		log.Error().Err(err).Msg("Failed to hash password during registration")
		return nil, apperrors.Internal("failed to hash password")
	}

	user.Password = string(hashedPassword)
	user.ID = primitive.NewObjectID()
	if user.Role == "" {
		user.Role = models.RoleUser
	}

	createdUser, err := s.userRepo.Create(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			log.Warn().Str("email", user.Email).Msg("Duplicate member during registration")
			return nil, apperrors.New(409, "a member with this employee id, email, mobile number or membership number already exists")
		}
		return nil, apperrors.Internal("failed to register member")
	}

	metrics.NewUsersTotal.Inc()
	log.Info().Str("user_id", createdUser.ID.Hex()).Str("email", createdUser.Email).Msg("Member registered successfully")

	if count, err := s.userRepo.CountAll(ctx); err == nil {
		metrics.TotalMembers.Set(float64(count))
	}
	return createdUser.Redacted(), nil
}

func (s *userService) GetAllUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.userRepo.FindAll(ctx)
	if err != nil {
		return nil, apperrors.Internal("failed to fetch members")
	}
	for i := range users {
		users[i].Password = ""
		users[i].RefreshToken = ""
	}
	return users, nil
}

func (s *userService) GetUserByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.Hex()).Msg("Failed to fetch member")
		return nil, apperrors.Internal("failed to fetch member")
	}
	if user == nil {
		return nil, apperrors.NotFound("user not found")
	}
	return user.Redacted(), nil
}

func (s *userService) UpdateUser(ctx context.Context, userID primitive.ObjectID, updatePayload *models.UserProfileUpdate) (*models.User, error) {
	updateFields := bson.M{}
	setIfPresent := func(key, value string) {
		if value != "" {
			updateFields[key] = value
		}
	}
	setIfPresent("username", strings.ToLower(strings.TrimSpace(updatePayload.Username)))
	setIfPresent("surname", updatePayload.Surname)
	setIfPresent("address", updatePayload.Address)
	setIfPresent("province", updatePayload.Province)
	setIfPresent("district", updatePayload.District)
	setIfPresent("municipality", updatePayload.Municipality)
	setIfPresent("ward_number", updatePayload.WardNumber)
	setIfPresent("tole", updatePayload.Tole)
	setIfPresent("telephone_number", updatePayload.TelephoneNumber)
	setIfPresent("mobile_number", updatePayload.MobileNumber)
	setIfPresent("office", updatePayload.Office)
	setIfPresent("place", updatePayload.Place)

	if updatePayload.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*updatePayload.Email))
		existing, err := s.userRepo.FindByEmail(ctx, email)
		if err != nil {
			return nil, apperrors.Internal("failed to check email availability")
		}
		if existing != nil && existing.ID != userID {
			log.Warn().Str("email", email).Msg("Email already in use during member update")
			return nil, apperrors.New(409, "email already in use by another account")
		}
		updateFields["email"] = email
	}
	if updatePayload.Password != nil && *updatePayload.Password != "" {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(*updatePayload.Password), bcryptCost)
		if err != nil {
			log.Error().Err(err).Str("user_id", userID.Hex()).Msg("Failed to hash new password")
			return nil, apperrors.Internal("failed to hash new password")
		}
		updateFields["password"] = string(hashedPassword)
	}

	if len(updateFields) == 0 {
		return nil, apperrors.BadRequest("no valid fields provided for update")
	}

	result, err := s.userRepo.Update(ctx, userID, updateFields)
	if err != nil {
		return nil, apperrors.Internal("failed to update member")
	}
	if result.MatchedCount == 0 {
		return nil, apperrors.NotFound("user not found")
	}

	updatedUser, err := s.userRepo.FindByID(ctx, userID)
	if err != nil || updatedUser == nil {
		log.Error().Err(err).Str("user_id", userID.Hex()).Msg("Error fetching updated member")
		return nil, apperrors.Internal("failed to retrieve updated member")
	}

	log.Info().Str("user_id", userID.Hex()).Msg("Member updated successfully")
	return updatedUser.Redacted(), nil
}

func (s *userService) DeleteUser(ctx context.Context, userID primitive.ObjectID) error {
	result, err := s.userRepo.Delete(ctx, userID)
	if err != nil {
		return apperrors.Internal("failed to delete member")
	}
	if result.DeletedCount == 0 {
		return apperrors.NotFound("user not found")
	}

	log.Info().Str("user_id", userID.Hex()).Msg("Member deleted successfully")

	if count, err := s.userRepo.CountAll(ctx); err == nil {
		metrics.TotalMembers.Set(float64(count))
	}
	return nil
}
