package repositories

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"samaj/internal/database"
	"samaj/internal/models"
	"samaj/internal/utils"
)

// OTPRepository owns the challenge collection. Nothing else touches it.
type OTPRepository interface {
	Create(ctx context.Context, otp *models.OTP) (*models.OTP, error)
	FindByID(ctx context.Context, otpID primitive.ObjectID, method models.DeliveryMethod) (*models.OTP, error)
	FindByCode(ctx context.Context, code string, method models.DeliveryMethod) (*models.OTP, error)
	DeleteByID(ctx context.Context, otpID primitive.ObjectID) error
	DeleteByIdentifier(ctx context.Context, identifier string, method models.DeliveryMethod) error
	EnsureIndexes(ctx context.Context) error
}

type otpRepository struct {
	db database.Service
}

func NewOTPRepository(db database.Service) OTPRepository {
	return &otpRepository{db: db}
}

func (r *otpRepository) collection() *mongo.Collection {
	return r.db.Database().Collection("otps")
}

// EnsureIndexes sets up the TTL index that reaps expired challenges and the
// identifier+channel index the delete-then-insert cycle leans on. The TTL
// monitor runs about once a minute, so Expired() is still checked on read.
func (r *otpRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expiry", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
		{
			Keys: bson.D{{Key: "identifier", Value: 1}, {Key: "delivery_method", Value: 1}},
		},
	}
	_, err := r.collection().Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *otpRepository) Create(ctx context.Context, otp *models.OTP) (*models.OTP, error) {
	queryType := "create"
	repository := "otp"
	status := "success"
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		utils.DBQueryDurationSeconds.WithLabelValues(queryType, repository, status).Observe(v)
	}))
	defer timer.ObserveDuration()

	otp.ID = primitive.NewObjectID()
	otp.CreatedAt = time.Now()
	_, err := r.collection().InsertOne(ctx, otp)
	if err != nil {
		status = "error"
		utils.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		log.Error().Err(err).Str("identifier", otp.Identifier).Msg("Failed to insert OTP record")
		return nil, err
	}
	return otp, nil
}

func (r *otpRepository) FindByID(ctx context.Context, otpID primitive.ObjectID, method models.DeliveryMethod) (*models.OTP, error) {
	return r.findOne(ctx, "findById", bson.M{"_id": otpID, "delivery_method": method})
}

func (r *otpRepository) FindByCode(ctx context.Context, code string, method models.DeliveryMethod) (*models.OTP, error) {
	return r.findOne(ctx, "findByCode", bson.M{"code": code, "delivery_method": method})
}

func (r *otpRepository) findOne(ctx context.Context, queryType string, filter bson.M) (*models.OTP, error) {
	repository := "otp"
	status := "success"
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		utils.DBQueryDurationSeconds.WithLabelValues(queryType, repository, status).Observe(v)
	}))
	defer timer.ObserveDuration()

	var otp models.OTP
	err := r.collection().FindOne(ctx, filter).Decode(&otp)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		status = "error"
		utils.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		return nil, err
	}
	return &otp, nil
}

func (r *otpRepository) DeleteByID(ctx context.Context, otpID primitive.ObjectID) error {
	queryType := "deleteById"
	repository := "otp"
	status := "success"
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		utils.DBQueryDurationSeconds.WithLabelValues(queryType, repository, status).Observe(v)
	}))
	defer timer.ObserveDuration()

	_, err := r.collection().DeleteOne(ctx, bson.M{"_id": otpID})
	if err != nil {
		status = "error"
		utils.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		log.Error().Err(err).Str("otp_id", otpID.Hex()).Msg("Failed to delete OTP record")
	}
	return err
}

// DeleteByIdentifier removes every outstanding challenge for the identifier
// on the given channel, enforcing the one-live-challenge rule before a new
// record is inserted.
func (r *otpRepository) DeleteByIdentifier(ctx context.Context, identifier string, method models.DeliveryMethod) error {
	queryType := "deleteByIdentifier"
	repository := "otp"
	status := "success"
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		utils.DBQueryDurationSeconds.WithLabelValues(queryType, repository, status).Observe(v)
	}))
	defer timer.ObserveDuration()

	_, err := r.collection().DeleteMany(ctx, bson.M{"identifier": identifier, "delivery_method": method})
	if err != nil {
		status = "error"
		utils.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		log.Error().Err(err).Str("identifier", identifier).Msg("Failed to delete prior OTP records")
	}
	return err
}
