package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"

	"github.com/pribylovaa/rideshare-auth/internal/models"
	"github.com/pribylovaa/rideshare-auth/internal/storage"
)

type accountDoc struct {
	ID           string    `bson:"_id"`
	UniversityID string    `bson:"university_id"`
	Email        string    `bson:"email"`
	Phone        string    `bson:"phone"`
	Name         string    `bson:"name"`
	Role         string    `bson:"role"`
	PasswordHash string    `bson:"password_hash"`
	CreatedAt    time.Time `bson:"created_at"`
}

func (d accountDoc) model() *models.Account {
	return &models.Account{
		ID:           d.ID,
		UniversityID: d.UniversityID,
		Email:        d.Email,
		Phone:        d.Phone,
		Name:         d.Name,
		Role:         d.Role,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt.UTC(),
	}
}

// SaveAccount создаёт аккаунт. Пустой ID заполняется новым UUID; email хранится в нижнем регистре.
func (m *Mongo) SaveAccount(ctx context.Context, account *models.Account) error {
	const op = "storage.mongo.SaveAccount"

	if account.ID == "" {
		account.ID = uuid.NewString()
	}

	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	account.CreatedAt = account.CreatedAt.Truncate(time.Millisecond)

	_, err := m.accounts.InsertOne(ctx, accountDoc{
		ID:           account.ID,
		UniversityID: account.UniversityID,
		Email:        strings.ToLower(account.Email),
		Phone:        account.Phone,
		Name:         account.Name,
		Role:         account.Role,
		PasswordHash: account.PasswordHash,
		CreatedAt:    account.CreatedAt,
	})
	if err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return fmt.Errorf("%s: insert: %w", op, err)
	}

	return nil
}

// AccountByEmail находит аккаунт по email.
func (m *Mongo) AccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	const op = "storage.mongo.AccountByEmail"

	return m.findAccount(ctx, op, bson.D{{Key: "email", Value: strings.ToLower(email)}})
}

// AccountByID находит аккаунт по ID.
func (m *Mongo) AccountByID(ctx context.Context, id string) (*models.Account, error) {
	const op = "storage.mongo.AccountByID"

	return m.findAccount(ctx, op, bson.D{{Key: "_id", Value: id}})
}

// DeleteAccount удаляет аккаунт по ID.
func (m *Mongo) DeleteAccount(ctx context.Context, id string) error {
	const op = "storage.mongo.DeleteAccount"

	res, err := m.accounts.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if res.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

func (m *Mongo) findAccount(ctx context.Context, op string, filter bson.D) (*models.Account, error) {
	var doc accountDoc
	if err := m.accounts.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return doc.model(), nil
}
