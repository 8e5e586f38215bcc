package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

// LoanStatus is the single-letter availability code of a book copy.
type LoanStatus string

const (
	LoanStatusMaintenance LoanStatus = "m"
	LoanStatusOnLoan      LoanStatus = "o"
	LoanStatusAvailable   LoanStatus = "a"
	LoanStatusReserved    LoanStatus = "r"
)

// LoanStatusChoices lists the status codes in display order with their labels.
var LoanStatusChoices = []struct {
	Code  LoanStatus `json:"code"`
	Label string     `json:"label"`
}{
	{LoanStatusMaintenance, "Maintenance"},
	{LoanStatusOnLoan, "On loan"},
	{LoanStatusAvailable, "Available"},
	{LoanStatusReserved, "Reserved"},
}

// Label returns the human readable name of the status, or the raw code if unknown.
func (s LoanStatus) Label() string {
	for _, choice := range LoanStatusChoices {
		if choice.Code == s {
			return choice.Label
		}
	}
	return string(s)
}

// IsValid reports whether s is one of the four known codes.
func (s LoanStatus) IsValid() bool {
	switch s {
	case LoanStatusMaintenance, LoanStatusOnLoan, LoanStatusAvailable, LoanStatusReserved:
		return true
	}
	return false
}

type Genre struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Name  string `gorm:"size:200;not null" json:"name"`
	Books []Book `gorm:"many2many:book_genres;constraint:OnDelete:CASCADE;" json:"-"`
}

func (g Genre) String() string {
	return g.Name
}

type Language struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:50;not null" json:"name"`
}

func (l Language) String() string {
	return l.Name
}

type Author struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	FirstName   string     `gorm:"size:100;index:idx_author_name,priority:2" json:"first_name"`
	LastName    string     `gorm:"size:100;index:idx_author_name,priority:1" json:"last_name"`
	DateOfBirth *time.Time `gorm:"type:date" json:"date_of_birth,omitempty"`
	DateOfDeath *time.Time `gorm:"type:date" json:"date_of_death,omitempty"`
	Books       []Book     `gorm:"foreignKey:AuthorID;constraint:OnDelete:SET NULL;" json:"books,omitempty"`
}

func (a Author) String() string {
	return fmt.Sprintf("%s %s", a.FirstName, a.LastName)
}

// AbsoluteURL is the canonical detail path for the author.
func (a Author) AbsoluteURL() string {
	return fmt.Sprintf("/catalog/author/%d", a.ID)
}

type Book struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Title      string         `gorm:"size:200;not null;index" json:"title"`
	Summary    string         `gorm:"size:1000" json:"summary"`
	ISBN       string         `gorm:"column:isbn;size:13" json:"isbn"`
	AuthorID   *uint          `gorm:"index" json:"author_id"`
	Author     *Author        `gorm:"foreignKey:AuthorID;constraint:OnDelete:SET NULL;" json:"author,omitempty"`
	LanguageID *uint          `gorm:"index" json:"language_id"`
	Language   *Language      `gorm:"foreignKey:LanguageID;constraint:OnDelete:SET NULL;" json:"language,omitempty"`
	Genres     []Genre        `gorm:"many2many:book_genres;constraint:OnDelete:CASCADE;" json:"genres,omitempty"`
	Instances  []BookInstance `gorm:"foreignKey:BookID;constraint:OnDelete:SET NULL;" json:"instances,omitempty"`
}

func (b Book) String() string {
	return b.Title
}

// AbsoluteURL is the canonical detail path for the book.
func (b Book) AbsoluteURL() string {
	return fmt.Sprintf("/catalog/book/%d", b.ID)
}

// DisplayGenre joins the names of the first three genres, as shown in admin lists.
func (b Book) DisplayGenre() string {
	names := lo.Map(b.Genres, func(g Genre, _ int) string { return g.Name })
	if len(names) > 3 {
		names = names[:3]
	}
	return strings.Join(names, ", ")
}

type BookInstance struct {
	ID         uuid.UUID  `gorm:"type:varchar(36);primaryKey" json:"id"`
	BookID     *uint      `gorm:"index" json:"book_id"`
	Book       *Book      `gorm:"foreignKey:BookID;constraint:OnDelete:SET NULL;" json:"book,omitempty"`
	Imprint    string     `gorm:"size:200" json:"imprint"`
	DueBack    *time.Time `gorm:"type:date;index" json:"due_back,omitempty"`
	Status     LoanStatus `gorm:"size:1;default:'m';index" json:"status"`
	BorrowerID *uint      `gorm:"index" json:"borrower_id"`
	Borrower   *User      `gorm:"foreignKey:BorrowerID;constraint:OnDelete:SET NULL;" json:"-"`
}

// BeforeCreate assigns a random UUID and the maintenance status when unset.
func (bi *BookInstance) BeforeCreate(tx *gorm.DB) error {
	if bi.ID == uuid.Nil {
		bi.ID = uuid.New()
	}
	if bi.Status == "" {
		bi.Status = LoanStatusMaintenance
	}
	return nil
}

func (bi BookInstance) String() string {
	title := ""
	if bi.Book != nil {
		title = bi.Book.Title
	}
	return fmt.Sprintf("%s (%s)", bi.ID, title)
}

// IsOverdue reports whether the copy was due back before the calendar day
// of now. Due dates are stored as UTC midnight, so only the date parts are
// compared.
func (bi BookInstance) IsOverdue(now time.Time) bool {
	if bi.DueBack == nil {
		return false
	}
	y, m, d := bi.DueBack.UTC().Date()
	due := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	y, m, d = now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return due.Before(today)
}

// StatusLabel returns the human readable loan status.
func (bi BookInstance) StatusLabel() string {
	return bi.Status.Label()
}
