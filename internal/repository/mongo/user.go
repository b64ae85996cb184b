package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dtroode/breathesense-server/internal/model"
)

var _ model.UserStore = (*UserRepository)(nil)

// withoutCredential hides the password hash from default reads.
var withoutCredential = bson.D{{Key: "password_hash", Value: 0}}

type userDocument struct {
	ID               string                  `bson:"_id"`
	Email            string                  `bson:"email"`
	PasswordHash     string                  `bson:"password_hash,omitempty"`
	FirstName        string                  `bson:"first_name"`
	LastName         string                  `bson:"last_name"`
	Role             string                  `bson:"role"`
	DateOfBirth      *time.Time              `bson:"date_of_birth,omitempty"`
	PhoneNumber      string                  `bson:"phone_number,omitempty"`
	Address          *model.Address          `bson:"address,omitempty"`
	MedicalHistory   *model.MedicalHistory   `bson:"medical_history,omitempty"`
	EmergencyContact *model.EmergencyContact `bson:"emergency_contact,omitempty"`
	IsActive         bool                    `bson:"is_active"`
	LastLogin        *time.Time              `bson:"last_login,omitempty"`
	CreatedAt        time.Time               `bson:"created_at"`
	UpdatedAt        time.Time               `bson:"updated_at"`
}

func newUserDocument(u model.User) userDocument {
	return userDocument{
		ID:               u.ID.String(),
		Email:            strings.ToLower(u.Email),
		PasswordHash:     u.PasswordHash,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		Role:             string(u.Role),
		DateOfBirth:      u.DateOfBirth,
		PhoneNumber:      u.PhoneNumber,
		Address:          u.Address,
		MedicalHistory:   u.MedicalHistory,
		EmergencyContact: u.EmergencyContact,
		IsActive:         u.IsActive,
		LastLogin:        u.LastLogin,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}

func (d userDocument) toModel() (model.User, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return model.User{}, fmt.Errorf("invalid user id %q: %w", d.ID, err)
	}

	return model.User{
		ID:               id,
		Email:            d.Email,
		PasswordHash:     d.PasswordHash,
		FirstName:        d.FirstName,
		LastName:         d.LastName,
		Role:             model.Role(d.Role),
		DateOfBirth:      d.DateOfBirth,
		PhoneNumber:      d.PhoneNumber,
		Address:          d.Address,
		MedicalHistory:   d.MedicalHistory,
		EmergencyContact: d.EmergencyContact,
		IsActive:         d.IsActive,
		LastLogin:        d.LastLogin,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}, nil
}

// UserRepository stores users as documents in one collection.
type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(coll *mongo.Collection) *UserRepository {
	return &UserRepository{
		coll: coll,
	}
}

// EnsureIndexes creates the unique email index and the listing index.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("users_email_unique"),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("users_created_at"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user model.User) (model.User, error) {
	if !user.Role.Valid() {
		return model.User{}, fmt.Errorf("%w: role %q", model.ErrConstraint, user.Role)
	}

	doc := newUserDocument(user)
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.User{}, model.ErrEmailTaken
		}
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	doc.PasswordHash = ""
	return doc.toModel()
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id.String()}}, options.FindOne().SetProjection(withoutCredential))
}

func (r *UserRepository) GetByEmailWithCredential(ctx context.Context, email string) (model.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: strings.ToLower(strings.TrimSpace(email))}})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.D, opts ...*options.FindOneOptions) (model.User, error) {
	var doc userDocument
	if err := r.coll.FindOne(ctx, filter, opts...).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to find user: %w", err)
	}
	return doc.toModel()
}

// Update overwrites the mutable fields of user. Email, password hash and
// created_at are never written here.
func (r *UserRepository) Update(ctx context.Context, user model.User) (model.User, error) {
	if !user.Role.Valid() {
		return model.User{}, fmt.Errorf("%w: role %q", model.ErrConstraint, user.Role)
	}

	set := bson.D{
		{Key: "first_name", Value: user.FirstName},
		{Key: "last_name", Value: user.LastName},
		{Key: "role", Value: string(user.Role)},
		{Key: "phone_number", Value: user.PhoneNumber},
		{Key: "is_active", Value: user.IsActive},
		{Key: "updated_at", Value: user.UpdatedAt},
	}
	var unset bson.D

	optional := []struct {
		key   string
		value any
		isNil bool
	}{
		{"date_of_birth", user.DateOfBirth, user.DateOfBirth == nil},
		{"address", user.Address, user.Address == nil},
		{"medical_history", user.MedicalHistory, user.MedicalHistory == nil},
		{"emergency_contact", user.EmergencyContact, user.EmergencyContact == nil},
	}
	for _, f := range optional {
		if f.isNil {
			unset = append(unset, bson.E{Key: f.key, Value: ""})
			continue
		}
		set = append(set, bson.E{Key: f.key, Value: f.value})
	}

	update := bson.D{{Key: "$set", Value: set}}
	if len(unset) > 0 {
		update = append(update, bson.E{Key: "$unset", Value: unset})
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(withoutCredential)

	var doc userDocument
	err := r.coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: user.ID.String()}}, update, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to update user: %w", err)
	}

	return doc.toModel()
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id.String()}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "last_login", Value: at}}}},
	)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	if res.MatchedCount == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context, filter model.ListFilter) ([]model.User, int64, error) {
	query := listFilter(filter)

	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	opts := options.Find().
		SetProjection(withoutCredential).
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(filter.Offset).
		SetLimit(filter.Limit)

	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("failed to decode users: %w", err)
	}

	users := make([]model.User, 0, len(docs))
	for _, doc := range docs {
		user, err := doc.toModel()
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}

	return users, total, nil
}

func (r *UserRepository) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, nil)
}

func listFilter(filter model.ListFilter) bson.D {
	query := bson.D{}

	if filter.Role != nil {
		query = append(query, bson.E{Key: "role", Value: string(*filter.Role)})
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
		query = append(query, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "first_name", Value: re}},
			bson.D{{Key: "last_name", Value: re}},
			bson.D{{Key: "email", Value: re}},
		}})
	}

	return query
}
