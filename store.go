package travelblog

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique column (user email, post
	// title) already holds the value.
	ErrDuplicate = errors.New("already exists")
)

// Store wraps the database and provides the blog's read and write
// operations.
type Store struct {
	db *gorm.DB
}

// NewStore opens the database selected by cfg and migrates the schema.
func NewStore(cfg SiteConfig, log *logrus.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.DatabaseDriver {
	case "postgres":
		dialector = postgres.Open(cfg.DatabaseDSN)
	case "sqlite", "":
		sqlDB, err := openSQLite(cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		dialector = sqlite.New(sqlite.Config{Conn: sqlDB})
	default:
		return nil, errors.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newGormLogger(log, cfg.Debug),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	return newStoreFromDB(db)
}

func newStoreFromDB(db *gorm.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

// openSQLite opens (or creates) the SQLite file at path with the modernc
// driver, making sure the data directory exists. Pragmas are passed in the
// DSN so every pooled connection gets them: WAL for concurrent readers, a
// busy timeout so writers wait instead of failing with SQLITE_BUSY, and
// foreign key enforcement.
func openSQLite(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "create data dir")
		}
	}
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	return db, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) ensureSchema() error {
	return errors.Wrap(s.db.AutoMigrate(&User{}, &BlogPost{}, &Comment{}, &Photo{}), "migrate schema")
}

// CreateUser inserts u. The account with the lowest id is the site admin,
// so the very first registration gets the flag. A taken email yields
// ErrDuplicate.
func (s *Store) CreateUser(ctx context.Context, u *User) error {
	db := s.db.WithContext(ctx)
	u.IsAdmin = false
	if err := db.Omit(clause.Associations).Create(u).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return errors.Wrap(err, "create user")
	}
	// Only the lowest id keeps the flag. A concurrent insert with a higher id
	// may have granted itself the flag before this row was visible, so that
	// grant is revoked here.
	err := db.Exec(
		"UPDATE users SET is_admin = (id = ?) WHERE ? = (SELECT MIN(id) FROM users) AND (id = ? OR is_admin)",
		u.ID, u.ID, u.ID,
	).Error
	if err != nil {
		return errors.Wrap(err, "assign admin")
	}
	if err := db.Model(&User{}).Select("is_admin").Where("id = ?", u.ID).Row().Scan(&u.IsAdmin); err != nil {
		return errors.Wrap(err, "read admin flag")
	}
	return nil
}

// GetUser returns the user with the given id.
func (s *Store) GetUser(ctx context.Context, id uint) (User, error) {
	var u User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return User{}, translate(err, "get user")
	}
	return u, nil
}

// GetUserByEmail returns the user registered with email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return User{}, translate(err, "get user by email")
	}
	return u, nil
}

// ListPosts returns every post with its author, newest first.
func (s *Store) ListPosts(ctx context.Context) ([]BlogPost, error) {
	var posts []BlogPost
	err := s.db.WithContext(ctx).
		Preload("Author").
		Order("id DESC").
		Find(&posts).Error
	if err != nil {
		return nil, errors.Wrap(err, "list posts")
	}
	return posts, nil
}

// GetPost returns a post with its author and comments, oldest comment first.
func (s *Store) GetPost(ctx context.Context, id uint) (BlogPost, error) {
	var p BlogPost
	err := s.db.WithContext(ctx).
		Preload("Author").
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Comments.Author").
		First(&p, id).Error
	if err != nil {
		return BlogPost{}, translate(err, "get post")
	}
	return p, nil
}

// CreatePost inserts p. A title already in use yields ErrDuplicate.
func (s *Store) CreatePost(ctx context.Context, p *BlogPost) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := titleAvailable(tx, p.Title, 0); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(p).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicate
			}
			return errors.Wrap(err, "create post")
		}
		return nil
	})
}

// UpdatePost writes the editable columns of p back to its row.
func (s *Store) UpdatePost(ctx context.Context, p *BlogPost) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := titleAvailable(tx, p.Title, p.ID); err != nil {
			return err
		}
		res := tx.Model(&BlogPost{ID: p.ID}).
			Select("title", "subtitle", "start_date", "end_date", "body", "img_local", "updated_at").
			Updates(map[string]interface{}{
				"title":      p.Title,
				"subtitle":   p.Subtitle,
				"start_date": p.Start,
				"end_date":   p.End,
				"body":       p.Body,
				"img_local":  p.ImgLocal,
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			if isUniqueViolation(res.Error) {
				return ErrDuplicate
			}
			return errors.Wrap(res.Error, "update post")
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// DeletePost removes a post together with its comments and returns the
// deleted row so the caller can clean up its image.
func (s *Store) DeletePost(ctx context.Context, id uint) (BlogPost, error) {
	var p BlogPost
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, id).Error; err != nil {
			return translate(err, "get post")
		}
		if err := tx.Where("post_id = ?", id).Delete(&Comment{}).Error; err != nil {
			return errors.Wrap(err, "delete comments")
		}
		if err := tx.Delete(&BlogPost{}, id).Error; err != nil {
			return errors.Wrap(err, "delete post")
		}
		return nil
	})
	if err != nil {
		return BlogPost{}, err
	}
	return p, nil
}

// AddComment stores c. The post must exist.
func (s *Store) AddComment(ctx context.Context, c *Comment) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&BlogPost{}).Where("id = ?", c.PostID).Count(&n).Error; err != nil {
			return errors.Wrap(err, "check post")
		}
		if n == 0 {
			return ErrNotFound
		}
		return errors.Wrap(tx.Omit(clause.Associations).Create(c).Error, "create comment")
	})
}

// CreatePhoto records a standalone gallery image.
func (s *Store) CreatePhoto(ctx context.Context, p *Photo) error {
	return errors.Wrap(s.db.WithContext(ctx).Create(p).Error, "create photo")
}

// ListPhotos returns all gallery photos, newest first.
func (s *Store) ListPhotos(ctx context.Context) ([]Photo, error) {
	var photos []Photo
	if err := s.db.WithContext(ctx).Order("id DESC").Find(&photos).Error; err != nil {
		return nil, errors.Wrap(err, "list photos")
	}
	return photos, nil
}

func titleAvailable(tx *gorm.DB, title string, exceptID uint) error {
	var n int64
	q := tx.Model(&BlogPost{}).Where("title = ?", title)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&n).Error; err != nil {
		return errors.Wrap(err, "check title")
	}
	if n > 0 {
		return ErrDuplicate
	}
	return nil
}

func translate(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return errors.Wrap(err, msg)
}

// isUniqueViolation recognises unique-constraint failures from both drivers.
// The modernc driver's errors are not translated by gorm, so the message is
// checked as well.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
