// Command travelblog-seed fills a database with demo travel reports.
//
// The admin account is created first, so on a fresh database it becomes
// the site admin. Cover images are generated and stored through the same
// upload pipeline the site uses.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/eringen/travelblog"
)

func main() {
	var (
		opts seedOptions
		seed int64
	)
	flag.IntVar(&opts.Posts, "posts", 8, "number of posts to create")
	flag.IntVar(&opts.Readers, "readers", 5, "number of reader accounts to create")
	flag.IntVar(&opts.Comments, "comments", 3, "comments per post")
	flag.StringVar(&opts.AdminEmail, "admin-email", "admin@example.com", "admin account email")
	flag.StringVar(&opts.AdminPassword, "admin-password", "changeme", "admin account password")
	flag.Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	flag.Parse()

	cfg, err := travelblog.LoadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("seed: load config")
	}
	log := travelblog.NewLogger(cfg.Debug)

	store, err := travelblog.NewStore(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("seed: open store")
	}
	defer store.Close()

	s := newSeeder(store, travelblog.NewUploads(cfg), log, seed)
	created, err := s.run(context.Background(), opts)
	if err != nil {
		log.WithError(err).Fatal("seed: failed")
	}
	log.WithFields(logrus.Fields{"posts": created, "readers": opts.Readers}).Info("seed: done")
}

type seedOptions struct {
	Posts         int
	Readers       int
	Comments      int
	AdminEmail    string
	AdminPassword string
}

type seeder struct {
	store   *travelblog.Store
	uploads *travelblog.Uploads
	log     *logrus.Logger
	rnd     *rand.Rand
}

func newSeeder(store *travelblog.Store, uploads *travelblog.Uploads, log *logrus.Logger, seed int64) *seeder {
	gofakeit.Seed(seed)
	return &seeder{
		store:   store,
		uploads: uploads,
		log:     log,
		rnd:     rand.New(rand.NewSource(seed)),
	}
}

// run creates the admin, the readers and opts.Posts posts with their
// comments. It returns how many posts were created.
func (s *seeder) run(ctx context.Context, opts seedOptions) (int, error) {
	admin, err := s.ensureUser(ctx, opts.AdminEmail, "Admin", opts.AdminPassword)
	if err != nil {
		return 0, errors.Wrap(err, "admin")
	}
	if !admin.IsAdmin {
		s.log.WithField("email", admin.Email).Warn("seed: account exists but is not the admin")
	}

	authors := []travelblog.User{admin}
	for i := 0; i < opts.Readers; i++ {
		u, err := s.ensureUser(ctx, gofakeit.Email(), gofakeit.Name(), gofakeit.Password(true, true, true, false, false, 12))
		if err != nil {
			return 0, errors.Wrap(err, "reader")
		}
		authors = append(authors, u)
	}

	created := 0
	// Random titles can collide with existing posts; give up after a few
	// extra attempts.
	for attempt := 0; created < opts.Posts && attempt < opts.Posts*3; attempt++ {
		p, err := s.createPost(ctx, admin)
		if errors.Is(err, travelblog.ErrDuplicate) {
			continue
		}
		if err != nil {
			return created, errors.Wrap(err, "post")
		}
		for j := 0; j < opts.Comments; j++ {
			author := authors[s.rnd.Intn(len(authors))]
			c := travelblog.Comment{PostID: p.ID, AuthorID: author.ID, Text: gofakeit.Sentence(12)}
			if err := s.store.AddComment(ctx, &c); err != nil {
				return created, errors.Wrap(err, "comment")
			}
		}
		created++
	}
	return created, nil
}

// ensureUser returns the account registered with email, creating it first
// when needed.
func (s *seeder) ensureUser(ctx context.Context, email, name, password string) (travelblog.User, error) {
	email = strings.ToLower(email)
	u, err := s.store.GetUserByEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, travelblog.ErrNotFound) {
		return travelblog.User{}, err
	}
	hash, err := travelblog.HashPassword(password)
	if err != nil {
		return travelblog.User{}, err
	}
	u = travelblog.User{Email: email, Name: name, Password: hash}
	if err := s.store.CreateUser(ctx, &u); err != nil {
		return travelblog.User{}, err
	}
	return u, nil
}

func (s *seeder) createPost(ctx context.Context, author travelblog.User) (travelblog.BlogPost, error) {
	city, country := gofakeit.City(), gofakeit.Country()
	start := gofakeit.DateRange(time.Now().AddDate(-3, 0, 0), time.Now().AddDate(0, -1, 0))
	end := start.AddDate(0, 0, gofakeit.Number(2, 21))

	cover, err := s.coverImage()
	if err != nil {
		return travelblog.BlogPost{}, errors.Wrap(err, "paint cover")
	}
	img, err := s.uploads.Ingest(travelblog.Slugify(city)+".png", bytes.NewReader(cover))
	if err != nil {
		return travelblog.BlogPost{}, errors.Wrap(err, "ingest cover")
	}

	var body strings.Builder
	body.WriteString("## Getting there\n\n")
	body.WriteString(gofakeit.Paragraph(1, 4, 12, "\n\n"))
	body.WriteString("\n\n## Highlights\n\n")
	for i := 0; i < 3; i++ {
		fmt.Fprintf(&body, "- %s\n", gofakeit.Sentence(6))
	}
	body.WriteString("\n")
	body.WriteString(gofakeit.Paragraph(2, 4, 12, "\n\n"))

	p := travelblog.BlogPost{
		AuthorID: author.ID,
		Title:    fmt.Sprintf("%s, %s", city, country),
		Subtitle: gofakeit.Sentence(8),
		Start:    start.Format("January 2, 2006"),
		End:      end.Format("January 2, 2006"),
		Body:     body.String(),
		ImgLocal: img,
	}
	if err := s.store.CreatePost(ctx, &p); err != nil {
		if rmErr := s.uploads.Remove(img); rmErr != nil {
			s.log.WithError(rmErr).Warn("seed: remove cover")
		}
		return travelblog.BlogPost{}, err
	}
	return p, nil
}

// coverImage paints a horizontal two-colour gradient and returns it as PNG.
func (s *seeder) coverImage() ([]byte, error) {
	const w, h = 1200, 800
	from := color.RGBA{uint8(s.rnd.Intn(256)), uint8(s.rnd.Intn(256)), uint8(s.rnd.Intn(256)), 255}
	to := color.RGBA{uint8(s.rnd.Intn(256)), uint8(s.rnd.Intn(256)), uint8(s.rnd.Intn(256)), 255}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		c := color.RGBA{
			R: lerp(from.R, to.R, x, w),
			G: lerp(from.G, to.G, x, w),
			B: lerp(from.B, to.B, x, w),
			A: 255,
		}
		for y := 0; y < h; y++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func lerp(a, b uint8, i, n int) uint8 {
	return uint8(int(a) + (int(b)-int(a))*i/n)
}
