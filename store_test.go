package travelblog

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	s, err := NewStore(SiteConfig{DatabaseDSN: filepath.Join(t.TempDir(), "blog.db")}, log)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestUser(t *testing.T, s *Store, email, name string) User {
	t.Helper()
	u := User{Email: email, Name: name, Password: "x"}
	require.NoError(t, s.CreateUser(context.Background(), &u))
	return u
}

func createTestPost(t *testing.T, s *Store, author User, title string) BlogPost {
	t.Helper()
	p := BlogPost{
		AuthorID: author.ID,
		Title:    title,
		Subtitle: "subtitle",
		Start:    "June 1, 2024",
		End:      "June 9, 2024",
		Body:     "body",
		ImgLocal: "img/uploads/" + Slugify(title) + ".jpg",
	}
	require.NoError(t, s.CreatePost(context.Background(), &p))
	return p
}

func TestCreateUserFirstIsAdmin(t *testing.T) {
	s := newTestStore(t)

	first := createTestUser(t, s, "ana@example.com", "Ana")
	second := createTestUser(t, s, "ben@example.com", "Ben")

	assert.True(t, first.IsAdmin)
	assert.False(t, second.IsAdmin)

	got, err := s.GetUser(context.Background(), first.ID)
	require.NoError(t, err)
	assert.True(t, got.IsAdmin)
	assert.Equal(t, "ana@example.com", got.Email)
}

func TestCreateUserConcurrentFirstRegistrations(t *testing.T) {
	s := newTestStore(t)

	const n = 8
	users := make([]User, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			users[i] = User{Email: fmt.Sprintf("user%d@example.com", i), Name: "User", Password: "x"}
			errs[i] = s.CreateUser(context.Background(), &users[i])
		}(i)
	}
	wg.Wait()

	minID := users[0].ID
	for i := range users {
		require.NoError(t, errs[i])
		if users[i].ID < minID {
			minID = users[i].ID
		}
	}

	var admins []User
	require.NoError(t, s.db.Where("is_admin = ?", true).Find(&admins).Error)
	require.Len(t, admins, 1)
	assert.Equal(t, minID, admins[0].ID)
}

func TestCreateUserKeepsExistingAdmins(t *testing.T) {
	s := newTestStore(t)
	first := createTestUser(t, s, "ana@example.com", "Ana")
	second := createTestUser(t, s, "ben@example.com", "Ben")
	require.NoError(t, s.db.Model(&User{}).Where("id = ?", second.ID).Update("is_admin", true).Error)

	third := createTestUser(t, s, "cleo@example.com", "Cleo")
	assert.False(t, third.IsAdmin)

	for _, id := range []uint{first.ID, second.ID} {
		got, err := s.GetUser(context.Background(), id)
		require.NoError(t, err)
		assert.True(t, got.IsAdmin)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	createTestUser(t, s, "ana@example.com", "Ana")

	dup := User{Email: "ana@example.com", Name: "Other", Password: "x"}
	err := s.CreateUser(context.Background(), &dup)
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestGetUserByEmailNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetUserByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreatePostDuplicateTitle(t *testing.T) {
	s := newTestStore(t)
	admin := createTestUser(t, s, "ana@example.com", "Ana")
	createTestPost(t, s, admin, "Lisbon")

	dup := BlogPost{AuthorID: admin.ID, Title: "Lisbon", Subtitle: "s", Start: "a", End: "b", Body: "c"}
	assert.ErrorIs(t, s.CreatePost(context.Background(), &dup), ErrDuplicate)
}

func TestUpdatePost(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	admin := createTestUser(t, s, "ana@example.com", "Ana")
	lisbon := createTestPost(t, s, admin, "Lisbon")
	createTestPost(t, s, admin, "Porto")

	lisbon.Subtitle = "trams and tiles"
	require.NoError(t, s.UpdatePost(ctx, &lisbon))
	got, err := s.GetPost(ctx, lisbon.ID)
	require.NoError(t, err)
	assert.Equal(t, "trams and tiles", got.Subtitle)
	assert.Equal(t, "Ana", got.Author.Name)

	// Keeping its own title is fine, taking another post's is not.
	lisbon.Title = "Porto"
	assert.ErrorIs(t, s.UpdatePost(ctx, &lisbon), ErrDuplicate)

	missing := BlogPost{ID: 999, Title: "Nowhere"}
	assert.ErrorIs(t, s.UpdatePost(ctx, &missing), ErrNotFound)
}

func TestListPostsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	admin := createTestUser(t, s, "ana@example.com", "Ana")
	createTestPost(t, s, admin, "Lisbon")
	createTestPost(t, s, admin, "Porto")

	posts, err := s.ListPosts(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "Porto", posts[0].Title)
	assert.Equal(t, "Lisbon", posts[1].Title)
	assert.Equal(t, "Ana", posts[0].Author.Name)
}

func TestGetPostCommentsInOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	admin := createTestUser(t, s, "ana@example.com", "Ana")
	reader := createTestUser(t, s, "ben@example.com", "Ben")
	post := createTestPost(t, s, admin, "Lisbon")

	for _, text := range []string{"first", "second", "third"} {
		require.NoError(t, s.AddComment(ctx, &Comment{PostID: post.ID, AuthorID: reader.ID, Text: text}))
	}

	got, err := s.GetPost(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, got.Comments, 3)
	assert.Equal(t, "first", got.Comments[0].Text)
	assert.Equal(t, "third", got.Comments[2].Text)
	assert.Equal(t, "Ben", got.Comments[0].Author.Name)
}

func TestGetPostNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetPost(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddCommentMissingPost(t *testing.T) {
	s := newTestStore(t)
	reader := createTestUser(t, s, "ben@example.com", "Ben")
	err := s.AddComment(context.Background(), &Comment{PostID: 7, AuthorID: reader.ID, Text: "hi"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeletePostRemovesComments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	admin := createTestUser(t, s, "ana@example.com", "Ana")
	post := createTestPost(t, s, admin, "Lisbon")
	require.NoError(t, s.AddComment(ctx, &Comment{PostID: post.ID, AuthorID: admin.ID, Text: "note"}))

	deleted, err := s.DeletePost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.ImgLocal, deleted.ImgLocal)

	_, err = s.GetPost(ctx, post.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	var n int64
	require.NoError(t, s.db.Model(&Comment{}).Where("post_id = ?", post.ID).Count(&n).Error)
	assert.Zero(t, n)

	_, err = s.DeletePost(ctx, post.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPhotos(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreatePhoto(ctx, &Photo{Img: "img/uploads/a.jpg"}))
	require.NoError(t, s.CreatePhoto(ctx, &Photo{Img: "img/uploads/b.jpg"}))

	photos, err := s.ListPhotos(ctx)
	require.NoError(t, err)
	require.Len(t, photos, 2)
	assert.Equal(t, "img/uploads/b.jpg", photos[0].Img)
}

func TestNewStoreUnknownDriver(t *testing.T) {
	_, err := NewStore(SiteConfig{DatabaseDriver: "oracle"}, nil)
	assert.Error(t, err)
}

func setupMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return &Store{db: gormDB}, mock
}

func TestListPostsWrapsDriverError(t *testing.T) {
	s, mock := setupMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "blog_posts"`)).
		WillReturnError(errors.New("connection reset"))

	_, err := s.ListPosts(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list posts")
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserTranslatesNoRows(t *testing.T) {
	s, mock := setupMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1`)).
		WithArgs(5, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}))

	_, err := s.GetUser(context.Background(), 5)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, isUniqueViolation(errors.New("UNIQUE constraint failed: users.email")))
	assert.True(t, isUniqueViolation(errors.New(`ERROR: duplicate key value violates unique constraint "idx_users_email"`)))
	assert.False(t, isUniqueViolation(errors.New("disk I/O error")))
}
