package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pribylovaa/rideshare-auth/internal/models"
	"github.com/pribylovaa/rideshare-auth/internal/storage"
)

type refreshTokenDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	AccountID string             `bson:"account_id"`
	Token     string             `bson:"token"`
	CreatedAt time.Time          `bson:"created_at"`
}

func (d refreshTokenDoc) model() models.RefreshToken {
	return models.RefreshToken{
		ID:        d.ID.Hex(),
		AccountID: d.AccountID,
		Token:     d.Token,
		CreatedAt: d.CreatedAt.UTC(),
	}
}

// InsertRefreshToken сохраняет новую запись; ID — ObjectID в hex.
func (m *Mongo) InsertRefreshToken(ctx context.Context, accountID, token string) (string, error) {
	const op = "storage.mongo.InsertRefreshToken"

	doc := refreshTokenDoc{
		AccountID: accountID,
		Token:     token,
		// MongoDB DateTime хранит миллисекунды.
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}

	res, err := m.refreshTokens.InsertOne(ctx, doc)
	if err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return "", fmt.Errorf("%s: insert: %w", op, err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("%s: inserted id type %T", op, res.InsertedID)
	}

	return oid.Hex(), nil
}

// RefreshTokenByValue находит запись по значению токена.
func (m *Mongo) RefreshTokenByValue(ctx context.Context, token string) (*models.RefreshToken, error) {
	const op = "storage.mongo.RefreshTokenByValue"

	var doc refreshTokenDoc
	err := m.refreshTokens.FindOne(ctx, bson.D{{Key: "token", Value: token}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rt := doc.model()
	return &rt, nil
}

// RefreshTokensByAccount возвращает записи аккаунта, старые первыми.
func (m *Mongo) RefreshTokensByAccount(ctx context.Context, accountID string) ([]models.RefreshToken, error) {
	const op = "storage.mongo.RefreshTokensByAccount"

	cur, err := m.refreshTokens.Find(ctx,
		bson.D{{Key: "account_id", Value: accountID}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: find: %w", op, err)
	}
	defer cur.Close(ctx)

	var out []models.RefreshToken
	for cur.Next(ctx) {
		var doc refreshTokenDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%s: decode: %w", op, err)
		}
		out = append(out, doc.model())
	}

	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("%s: cursor: %w", op, err)
	}

	return out, nil
}

// DeleteRefreshToken удаляет запись по ID. DeleteOne атомарен: при гонке
// DeletedCount == 1 получает ровно один вызывающий.
// Некорректный формат ID трактуется как «записи нет».
func (m *Mongo) DeleteRefreshToken(ctx context.Context, id string) (bool, error) {
	const op = "storage.mongo.DeleteRefreshToken"

	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return false, nil
	}

	res, err := m.refreshTokens.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return res.DeletedCount == 1, nil
}

// DeleteRefreshTokensByAccount удаляет все записи аккаунта.
func (m *Mongo) DeleteRefreshTokensByAccount(ctx context.Context, accountID string) (int64, error) {
	const op = "storage.mongo.DeleteRefreshTokensByAccount"

	res, err := m.refreshTokens.DeleteMany(ctx, bson.D{{Key: "account_id", Value: accountID}})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return res.DeletedCount, nil
}

// ScanRefreshTokens обходит все записи коллекции курсором.
func (m *Mongo) ScanRefreshTokens(ctx context.Context, fn func(models.RefreshToken) error) error {
	const op = "storage.mongo.ScanRefreshTokens"

	cur, err := m.refreshTokens.Find(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("%s: find: %w", op, err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var doc refreshTokenDoc
		if err := cur.Decode(&doc); err != nil {
			return fmt.Errorf("%s: decode: %w", op, err)
		}

		if err := fn(doc.model()); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := cur.Err(); err != nil {
		return fmt.Errorf("%s: cursor: %w", op, err)
	}

	return nil
}
