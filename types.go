package travelblog

import "time"

// User is a registered account. Admins manage posts; everyone else may only
// comment.
type User struct {
	ID        uint       `gorm:"primaryKey"`
	Email     string     `gorm:"size:100;uniqueIndex;not null"`
	Password  string     `gorm:"size:255;not null" json:"-"`
	Name      string     `gorm:"size:100;not null"`
	IsAdmin   bool       `gorm:"not null;default:false"`
	Posts     []BlogPost `gorm:"foreignKey:AuthorID" json:"-"`
	Comments  []Comment  `gorm:"foreignKey:AuthorID" json:"-"`
	CreatedAt time.Time
}

// TableName keeps the table names of databases created by the old site.
func (User) TableName() string { return "users" }

// BlogPost is a travel report: a titled article with the journey's start and
// end dates and a cover image stored under the uploads directory.
type BlogPost struct {
	ID       uint   `gorm:"primaryKey"`
	AuthorID uint   `gorm:"index;not null"`
	Author   User   `gorm:"foreignKey:AuthorID"`
	Title    string `gorm:"size:250;uniqueIndex;not null"`
	Subtitle string `gorm:"size:250;not null"`
	// Start and End are free text; the journey dates are never parsed.
	Start     string    `gorm:"column:start_date;size:250;not null"`
	End       string    `gorm:"column:end_date;size:250;not null"`
	Body      string    `gorm:"type:text;not null"`
	ImgLocal  string    `gorm:"column:img_local;size:250"`
	Comments  []Comment `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (BlogPost) TableName() string { return "blog_posts" }

// Link returns the site-relative URL of the post.
func (p BlogPost) Link() string {
	return BuildPath("post", p.ID)
}

// Comment is a reader's note attached to a post.
type Comment struct {
	ID        uint   `gorm:"primaryKey"`
	PostID    uint   `gorm:"index;not null"`
	AuthorID  uint   `gorm:"index;not null"`
	Author    User   `gorm:"foreignKey:AuthorID"`
	Text      string `gorm:"type:text;not null"`
	CreatedAt time.Time
}

func (Comment) TableName() string { return "comments" }

// Photo is a standalone gallery image that belongs to no post.
type Photo struct {
	ID        uint   `gorm:"primaryKey"`
	Img       string `gorm:"size:250"`
	CreatedAt time.Time
}

func (Photo) TableName() string { return "photos" }

// Page carries the per-request values every template needs: who is logged
// in, pending flash messages and the CSRF token for forms.
type Page struct {
	SiteName string
	Title    string
	User     *User
	Flashes  []string
	CSRF     string
}

// LoggedIn reports whether the request carries an authenticated session.
func (p Page) LoggedIn() bool { return p.User != nil }

// Admin reports whether the current user may manage posts.
func (p Page) Admin() bool { return p.User != nil && p.User.IsAdmin }
