package user

import (
	"context"
	"testing"

	"wheelhub-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, name, email string) *domain.Identity {
	t.Helper()
	u := &domain.User{Name: name, Email: email, PasswordHash: "x"}
	require.NoError(t, db.Create(u).Error)
	return domain.IdentityOf(u)
}

func TestGetProfile(t *testing.T) {
	db := setupTestDB(t)
	svc := &Service{DB: db}
	who := seedUser(t, db, "Dana", "dana@example.com")

	u, err := svc.GetProfile(context.Background(), who)
	require.NoError(t, err)
	assert.Equal(t, "Dana", u.Name)

	_, err = svc.GetProfile(context.Background(), nil)
	assert.Equal(t, ErrMissingUserID, err)

	_, err = svc.GetProfile(context.Background(), &domain.Identity{UserID: uuid.NewString()})
	assert.Equal(t, ErrUserNotFound, err)
}

func TestUpdateProfile(t *testing.T) {
	db := setupTestDB(t)
	svc := &Service{DB: db}
	who := seedUser(t, db, "Dana", "dana@example.com")

	u, err := svc.UpdateProfile(context.Background(), who, ProfileInput{Name: " Dana R ", Email: "DANA.R@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Dana R", u.Name)
	assert.Equal(t, "dana.r@example.com", u.Email)

	// Keeping one's own name is allowed.
	_, err = svc.UpdateProfile(context.Background(), who, ProfileInput{Name: "Dana R", Email: "dana.r@example.com"})
	require.NoError(t, err)
}

func TestUpdateProfile_Rejects(t *testing.T) {
	db := setupTestDB(t)
	svc := &Service{DB: db}
	who := seedUser(t, db, "Dana", "dana@example.com")
	seedUser(t, db, "Eli", "eli@example.com")
	ctx := context.Background()

	cases := []struct {
		in   ProfileInput
		want error
	}{
		{ProfileInput{Name: "", Email: "dana@example.com"}, ErrNameRequired},
		{ProfileInput{Name: "Dana", Email: ""}, ErrEmailRequired},
		{ProfileInput{Name: "Dana", Email: "nope"}, ErrInvalidEmailFormat},
		{ProfileInput{Name: "Eli", Email: "dana@example.com"}, ErrNameTaken},
		{ProfileInput{Name: "  Eli ", Email: "dana@example.com"}, ErrNameTaken},
		{ProfileInput{Name: "   ", Email: "dana@example.com"}, ErrNameRequired},
		{ProfileInput{Name: "Dana", Email: "eli@example.com"}, ErrEmailTaken},
	}
	for _, tc := range cases {
		_, err := svc.UpdateProfile(ctx, who, tc.in)
		assert.Equal(t, tc.want, err, "%+v", tc.in)
	}

	_, err := svc.UpdateProfile(ctx, &domain.Identity{UserID: "not-a-uuid"}, ProfileInput{Name: "X", Email: "x@example.com"})
	assert.Equal(t, ErrInvalidUserID, err)

	_, err = svc.UpdateProfile(ctx, &domain.Identity{UserID: uuid.NewString()}, ProfileInput{Name: "X", Email: "x@example.com"})
	assert.Equal(t, ErrUserNotFound, err)
}
