package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"userdir/internal/account"
	"userdir/internal/auth"
	"userdir/internal/auth/mocks"
	"userdir/internal/httpx"
	"userdir/internal/platform/crypto"
	"userdir/internal/testutil"
)

func newGate(t *testing.T) (*auth.Gate, *mocks.MockAccountLookup) {
	ctrl := gomock.NewController(t)
	lookup := mocks.NewMockAccountLookup(ctrl)
	return auth.NewGate(testutil.NewIssuer(t), lookup), lookup
}

func signedWithSub(t *testing.T, sub string) string {
	t.Helper()
	c := crypto.Claims{
		Sub:  sub,
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(testutil.TestSecret))
	require.NoError(t, err)
	return token
}

func TestGate_RejectsBeforeStoreLookup(t *testing.T) {
	otherIssuer, err := crypto.NewTokenIssuer("some-other-secret", time.Hour)
	require.NoError(t, err)
	forged, _, err := otherIssuer.Issue("1", "admin")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header func(t *testing.T) string
		want   error
	}{
		{"missing header", func(*testing.T) string { return "" }, auth.ErrNoCredential},
		{"wrong scheme", func(*testing.T) string { return "Basic YWRtaW46YWRtaW4=" }, auth.ErrNoCredential},
		{"empty bearer", func(*testing.T) string { return "Bearer " }, auth.ErrNoCredential},
		{"malformed token", func(*testing.T) string { return "Bearer not.a.jwt" }, auth.ErrInvalidCredential},
		{"bad signature", func(*testing.T) string { return "Bearer " + forged }, auth.ErrInvalidCredential},
		{"expired", func(*testing.T) string {
			return "Bearer " + testutil.GenerateExpiredToken(1, account.RoleAdmin)
		}, auth.ErrInvalidCredential},
		{"non-numeric subject", func(t *testing.T) string { return "Bearer " + signedWithSub(t, "abc") }, auth.ErrInvalidCredential},
		{"zero subject", func(t *testing.T) string { return "Bearer " + signedWithSub(t, "0") }, auth.ErrInvalidCredential},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// No lookup expectations: any store call fails the test.
			gate, _ := newGate(t)

			_, err := gate.Authorize(context.Background(), tt.header(t))

			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			var rejection *auth.Rejection
			require.True(t, errors.As(err, &rejection))
			assert.Equal(t, auth.Unauthenticated, rejection.Kind)
		})
	}
}

func TestGate_LiveAuthorization(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		tokenRole account.Role
		stored    account.Account
		storeErr  error
		want      error
		wantKind  auth.Kind
		wantRole  account.Role
	}{
		{
			name:      "active admin",
			tokenRole: account.RoleAdmin,
			stored:    account.Account{ID: 7, Role: account.RoleAdmin},
			wantRole:  account.RoleAdmin,
		},
		{
			name:      "promoted since token was issued",
			tokenRole: account.RoleUser,
			stored:    account.Account{ID: 7, Role: account.RoleAdmin},
			wantRole:  account.RoleAdmin,
		},
		{
			name:      "demoted since token was issued",
			tokenRole: account.RoleAdmin,
			stored:    account.Account{ID: 7, Role: account.RoleUser},
			want:      auth.ErrInsufficientPrivilege,
			wantKind:  auth.Forbidden,
		},
		{
			name:      "regular user",
			tokenRole: account.RoleUser,
			stored:    account.Account{ID: 7, Role: account.RoleUser},
			want:      auth.ErrInsufficientPrivilege,
			wantKind:  auth.Forbidden,
		},
		{
			name:      "banned admin",
			tokenRole: account.RoleAdmin,
			stored:    account.Account{ID: 7, Role: account.RoleAdmin, Banned: true},
			want:      auth.ErrBanned,
			wantKind:  auth.Forbidden,
		},
		{
			name:      "deleted account",
			tokenRole: account.RoleAdmin,
			storeErr:  account.ErrNotFound,
			want:      auth.ErrSubjectNotFound,
			wantKind:  auth.Unauthenticated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate, lookup := newGate(t)
			lookup.EXPECT().GetByID(ctx, int64(7)).Return(tt.stored, tt.storeErr).Times(1)

			token := testutil.GenerateTestToken(t, 7, tt.tokenRole)
			identity, err := gate.Authorize(ctx, "Bearer "+token)

			if tt.want == nil {
				require.NoError(t, err)
				assert.Equal(t, auth.Identity{ID: 7, Role: tt.wantRole}, identity)
				return
			}
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			var rejection *auth.Rejection
			require.True(t, errors.As(err, &rejection))
			assert.Equal(t, tt.wantKind, rejection.Kind)
		})
	}
}

func TestGate_StoreFailureIsNotARejection(t *testing.T) {
	gate, lookup := newGate(t)
	lookup.EXPECT().GetByID(gomock.Any(), int64(7)).Return(account.Account{}, account.ErrStore)

	_, err := gate.Authorize(context.Background(), "Bearer "+testutil.GenerateTestToken(t, 7, account.RoleAdmin))

	require.Error(t, err)
	assert.True(t, errors.Is(err, account.ErrStore))
	var rejection *auth.Rejection
	assert.False(t, errors.As(err, &rejection))
}

func TestRejection_Status(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, auth.ErrNoCredential.StatusCode())
	assert.Equal(t, "UNAUTHORIZED", auth.ErrSubjectNotFound.ErrorCode())
	assert.Equal(t, http.StatusForbidden, auth.ErrBanned.StatusCode())
	assert.Equal(t, "FORBIDDEN", auth.ErrInsufficientPrivilege.ErrorCode())
	assert.Equal(t, "account banned", auth.ErrBanned.Error())
}

func TestGate_Middleware(t *testing.T) {
	var seenID int64
	var seenRole string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = httpx.UserIDFrom(r)
		seenRole = httpx.RoleFrom(r)
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name           string
		setup          func(t *testing.T, lookup *mocks.MockAccountLookup) string
		expectedStatus int
		expectedCode   string
		expectedReason string
	}{
		{
			name: "admin passes",
			setup: func(t *testing.T, lookup *mocks.MockAccountLookup) string {
				lookup.EXPECT().GetByID(gomock.Any(), int64(3)).Return(account.Account{ID: 3, Role: account.RoleAdmin}, nil)
				return "Bearer " + testutil.GenerateTestToken(t, 3, account.RoleAdmin)
			},
			expectedStatus: http.StatusNoContent,
		},
		{
			name:           "no credential",
			setup:          func(*testing.T, *mocks.MockAccountLookup) string { return "" },
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   "UNAUTHORIZED",
			expectedReason: "no credential provided",
		},
		{
			name: "banned",
			setup: func(t *testing.T, lookup *mocks.MockAccountLookup) string {
				lookup.EXPECT().GetByID(gomock.Any(), int64(3)).Return(account.Account{ID: 3, Role: account.RoleAdmin, Banned: true}, nil)
				return "Bearer " + testutil.GenerateTestToken(t, 3, account.RoleAdmin)
			},
			expectedStatus: http.StatusForbidden,
			expectedCode:   "FORBIDDEN",
			expectedReason: "account banned",
		},
		{
			name: "store failure",
			setup: func(t *testing.T, lookup *mocks.MockAccountLookup) string {
				lookup.EXPECT().GetByID(gomock.Any(), int64(3)).Return(account.Account{}, errors.New("connection refused"))
				return "Bearer " + testutil.GenerateTestToken(t, 3, account.RoleAdmin)
			},
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   "INTERNAL_ERROR",
			expectedReason: "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seenID, seenRole = 0, ""
			gate, lookup := newGate(t)
			header := tt.setup(t, lookup)

			req := testutil.NewRequest(http.MethodGet, "/api/users", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			gate.Middleware()(next).ServeHTTP(rec, req)

			resp := testutil.RecordHTTPResponse(rec)
			assert.Equal(t, tt.expectedStatus, resp.Code)
			if tt.expectedCode == "" {
				assert.Equal(t, int64(3), seenID)
				assert.Equal(t, "admin", seenRole)
				return
			}
			assert.Zero(t, seenID)
			assert.Equal(t, tt.expectedCode, resp.ErrorCode())
			assert.Equal(t, tt.expectedReason, resp.Body["error"].(map[string]any)["message"])
			assert.NotContains(t, rec.Body.String(), "connection refused")
		})
	}
}
