package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"accountsvc/internal/domain"
	"accountsvc/pkg/logger"
)

const (
	AccountsCollection = "user_credentials"

	emailIndexName    = "email_unique"
	usernameIndexName = "user_name_unique"
)

// mongoAccount keeps the field names of the existing user_credentials
// collection.
type mongoAccount struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Username     string             `bson:"user_name"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password"`
	ProfilePhoto string             `bson:"profile_photo"`
	PhoneNumber  string             `bson:"phone_number"`
	Location     string             `bson:"location"`
	Theme        string             `bson:"theme"`
	Language     string             `bson:"language"`
	CreatedAt    time.Time          `bson:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at"`
}

func (m *mongoAccount) toDomain() *domain.Account {
	return &domain.Account{
		ID:           m.ID.Hex(),
		Username:     m.Username,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		ProfilePhoto: m.ProfilePhoto,
		PhoneNumber:  m.PhoneNumber,
		Location:     m.Location,
		Theme:        domain.Theme(m.Theme),
		Language:     m.Language,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

type MongoAccountRepository struct {
	collection *mongo.Collection
	logger     logger.Logger
	now        func() time.Time
}

func NewMongoAccountRepository(db *mongo.Database, logger logger.Logger) *MongoAccountRepository {
	return &MongoAccountRepository{
		collection: db.Collection(AccountsCollection),
		logger:     logger,
		now:        time.Now,
	}
}

// EnsureIndexes creates the unique indexes that back duplicate detection.
func (r *MongoAccountRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName(emailIndexName).SetUnique(true)},
		{Keys: bson.D{{Key: "user_name", Value: 1}}, Options: options.Index().SetName(usernameIndexName).SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("create account indexes: %w", err)
	}
	return nil
}

func (r *MongoAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	defer observe("create", "account")()

	now := r.now().UTC()
	if account.Theme == "" {
		account.Theme = domain.ThemeSystem
	}

	doc := mongoAccount{
		ID:           primitive.NewObjectID(),
		Username:     account.Username,
		Email:        account.Email,
		PasswordHash: account.PasswordHash,
		ProfilePhoto: account.ProfilePhoto,
		PhoneNumber:  account.PhoneNumber,
		Location:     account.Location,
		Theme:        string(account.Theme),
		Language:     account.Language,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if dup := mongoDuplicate(err); dup != nil {
			return dup
		}
		r.logger.ErrorContext(ctx, "Could not create account", map[string]interface{}{"error": err.Error()})
		return fmt.Errorf("create account: %w", err)
	}

	account.ID = doc.ID.Hex()
	account.CreatedAt = now
	account.UpdatedAt = now
	return nil
}

// mongoDuplicate maps an E11000 error to the duplicate sentinel named by the
// violated index. The key value that follows "dup key:" is never inspected.
func mongoDuplicate(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return nil
	}
	switch duplicateIndex(err.Error()) {
	case emailIndexName:
		return domain.ErrDuplicateEmail
	case usernameIndexName:
		return domain.ErrDuplicateUsername
	default:
		return nil
	}
}

// duplicateIndex extracts the index name from
// "E11000 duplicate key error collection: db.coll index: <name> dup key: {...}".
func duplicateIndex(msg string) string {
	const marker = "index: "
	_, rest, ok := strings.Cut(msg, marker)
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(rest, " ")
	return name
}

func (r *MongoAccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	defer observe("find_by_id", "account")()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrAccountNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *MongoAccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	defer observe("find_by_email", "account")()
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoAccountRepository) FindByIdentifier(ctx context.Context, identifier string) (*domain.Account, error) {
	defer observe("find_by_identifier", "account")()

	account, err := r.findOne(ctx, bson.M{"email": identifier})
	if !errors.Is(err, domain.ErrAccountNotFound) {
		return account, err
	}
	return r.findOne(ctx, bson.M{"user_name": identifier})
}

func (r *MongoAccountRepository) findOne(ctx context.Context, filter bson.M) (*domain.Account, error) {
	var doc mongoAccount
	if err := r.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		r.logger.ErrorContext(ctx, "Could not load account", map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("load account: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *MongoAccountRepository) ApplyProfilePatch(ctx context.Context, id string, patch domain.ProfilePatch, updatedAt time.Time) error {
	defer observe("update_profile", "account")()

	if patch.Empty() {
		return domain.ErrNoChangeApplied
	}

	set := bson.M{"updated_at": updatedAt.UTC()}
	if patch.ProfilePhoto != nil {
		set["profile_photo"] = *patch.ProfilePhoto
	}
	if patch.PhoneNumber != nil {
		set["phone_number"] = *patch.PhoneNumber
	}
	if patch.Location != nil {
		set["location"] = *patch.Location
	}
	if patch.Theme != nil {
		set["theme"] = string(*patch.Theme)
	}
	if patch.Language != nil {
		set["language"] = *patch.Language
	}

	return r.updateByID(ctx, "update profile", id, set)
}

func (r *MongoAccountRepository) UpdatePassword(ctx context.Context, id string, passwordHash string, updatedAt time.Time) error {
	defer observe("update_password", "account")()

	return r.updateByID(ctx, "update password", id, bson.M{
		"password":   passwordHash,
		"updated_at": updatedAt.UTC(),
	})
}

func (r *MongoAccountRepository) updateByID(ctx context.Context, op, id string, set bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrAccountNotFound
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		r.logger.ErrorContext(ctx, "Account write failed", map[string]interface{}{"op": op, "error": err.Error()})
		return fmt.Errorf("%s: %w", op, err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}
