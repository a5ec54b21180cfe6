package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/rideshare-auth/internal/models"
	"github.com/pribylovaa/rideshare-auth/internal/storage"
	"github.com/pribylovaa/rideshare-auth/internal/token"
	"github.com/pribylovaa/rideshare-auth/mocks"
)

var errDown = errors.New("connection refused")

func newManagerWithMock(t *testing.T) (*Manager, *mocks.MockRefreshTokenStorage, *token.Codec, *fakeClock) {
	t.Helper()

	ctrl := gomock.NewController(t)
	st := mocks.NewMockRefreshTokenStorage(ctrl)

	clk := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	codec, err := token.New(testAuthCfg(), token.WithClock(clk.Now))
	require.NoError(t, err)

	return New(st, codec), st, codec, clk
}

func TestLogin_StorageErrors(t *testing.T) {
	t.Parallel()

	t.Run("revoke previous fails", func(t *testing.T) {
		mgr, st, _, _ := newManagerWithMock(t)
		st.EXPECT().DeleteRefreshTokensByAccount(gomock.Any(), "acc-1").Return(int64(0), errDown)

		pair, err := mgr.Login(context.Background(), testClaims("acc-1"))
		require.Nil(t, pair)
		require.ErrorIs(t, err, ErrStorageUnavailable)
		require.ErrorIs(t, err, errDown)
	})

	t.Run("insert fails", func(t *testing.T) {
		mgr, st, _, _ := newManagerWithMock(t)
		gomock.InOrder(
			st.EXPECT().DeleteRefreshTokensByAccount(gomock.Any(), "acc-1").Return(int64(2), nil),
			st.EXPECT().InsertRefreshToken(gomock.Any(), "acc-1", gomock.Any()).Return("", errDown),
		)

		pair, err := mgr.Login(context.Background(), testClaims("acc-1"))
		require.Nil(t, pair)
		require.ErrorIs(t, err, ErrStorageUnavailable)
	})
}

func TestRotate_StorageErrors(t *testing.T) {
	t.Parallel()

	t.Run("lookup fails", func(t *testing.T) {
		mgr, st, _, _ := newManagerWithMock(t)
		st.EXPECT().RefreshTokenByValue(gomock.Any(), "tok").Return(nil, errDown)

		_, err := mgr.Rotate(context.Background(), "tok")
		require.ErrorIs(t, err, ErrStorageUnavailable)
		require.NotErrorIs(t, err, ErrNotFound)
	})

	t.Run("lookup not found", func(t *testing.T) {
		mgr, st, _, _ := newManagerWithMock(t)
		st.EXPECT().RefreshTokenByValue(gomock.Any(), "tok").
			Return(nil, fmt.Errorf("storage.x: %w", storage.ErrNotFound))

		_, err := mgr.Rotate(context.Background(), "tok")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("expired cleanup failure does not mask outcome", func(t *testing.T) {
		mgr, st, codec, clk := newManagerWithMock(t)
		refresh, err := codec.IssueRefresh(testClaims("acc-1"))
		require.NoError(t, err)
		clk.Advance(testAuthCfg().RefreshTokenTTL + time.Minute)

		st.EXPECT().RefreshTokenByValue(gomock.Any(), refresh).
			Return(&models.RefreshToken{ID: "r1", AccountID: "acc-1", Token: refresh}, nil)
		st.EXPECT().DeleteRefreshToken(gomock.Any(), "r1").Return(false, errDown)

		_, err = mgr.Rotate(context.Background(), refresh)
		require.ErrorIs(t, err, ErrExpired)
		require.NotErrorIs(t, err, ErrStorageUnavailable)
	})

	t.Run("invalid does not delete", func(t *testing.T) {
		mgr, st, _, _ := newManagerWithMock(t)
		st.EXPECT().RefreshTokenByValue(gomock.Any(), "bad").
			Return(&models.RefreshToken{ID: "r1", AccountID: "acc-1", Token: "bad"}, nil)

		_, err := mgr.Rotate(context.Background(), "bad")
		require.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("delete finds nothing", func(t *testing.T) {
		mgr, st, codec, _ := newManagerWithMock(t)
		refresh, err := codec.IssueRefresh(testClaims("acc-1"))
		require.NoError(t, err)

		st.EXPECT().RefreshTokenByValue(gomock.Any(), refresh).
			Return(&models.RefreshToken{ID: "r1", AccountID: "acc-1", Token: refresh}, nil)
		st.EXPECT().DeleteRefreshToken(gomock.Any(), "r1").Return(false, nil)

		_, err = mgr.Rotate(context.Background(), refresh)
		require.ErrorIs(t, err, ErrAlreadyRotated)
	})

	t.Run("delete fails", func(t *testing.T) {
		mgr, st, codec, _ := newManagerWithMock(t)
		refresh, err := codec.IssueRefresh(testClaims("acc-1"))
		require.NoError(t, err)

		st.EXPECT().RefreshTokenByValue(gomock.Any(), refresh).
			Return(&models.RefreshToken{ID: "r1", AccountID: "acc-1", Token: refresh}, nil)
		st.EXPECT().DeleteRefreshToken(gomock.Any(), "r1").Return(false, errDown)

		_, err = mgr.Rotate(context.Background(), refresh)
		require.ErrorIs(t, err, ErrStorageUnavailable)
	})

	t.Run("insert fails after delete", func(t *testing.T) {
		mgr, st, codec, _ := newManagerWithMock(t)
		refresh, err := codec.IssueRefresh(testClaims("acc-1"))
		require.NoError(t, err)

		gomock.InOrder(
			st.EXPECT().RefreshTokenByValue(gomock.Any(), refresh).
				Return(&models.RefreshToken{ID: "r1", AccountID: "acc-1", Token: refresh}, nil),
			st.EXPECT().DeleteRefreshToken(gomock.Any(), "r1").Return(true, nil),
			st.EXPECT().InsertRefreshToken(gomock.Any(), "acc-1", gomock.Any()).Return("", errDown),
		)

		pair, err := mgr.Rotate(context.Background(), refresh)
		require.Nil(t, pair)
		require.ErrorIs(t, err, ErrStorageUnavailable)
	})
}

func TestRevoke_StorageErrors(t *testing.T) {
	t.Parallel()

	t.Run("revoke one lookup fails", func(t *testing.T) {
		mgr, st, _, _ := newManagerWithMock(t)
		st.EXPECT().RefreshTokenByValue(gomock.Any(), "tok").Return(nil, errDown)

		require.ErrorIs(t, mgr.RevokeOne(context.Background(), "tok"), ErrStorageUnavailable)
	})

	t.Run("revoke one delete fails", func(t *testing.T) {
		mgr, st, _, _ := newManagerWithMock(t)
		st.EXPECT().RefreshTokenByValue(gomock.Any(), "tok").
			Return(&models.RefreshToken{ID: "r1", AccountID: "acc-1", Token: "tok"}, nil)
		st.EXPECT().DeleteRefreshToken(gomock.Any(), "r1").Return(false, errDown)

		require.ErrorIs(t, mgr.RevokeOne(context.Background(), "tok"), ErrStorageUnavailable)
	})

	t.Run("revoke all fails", func(t *testing.T) {
		mgr, st, _, _ := newManagerWithMock(t)
		st.EXPECT().DeleteRefreshTokensByAccount(gomock.Any(), "acc-1").Return(int64(0), errDown)

		n, err := mgr.RevokeAll(context.Background(), "acc-1")
		require.Zero(t, n)
		require.ErrorIs(t, err, ErrStorageUnavailable)
	})
}
