package cli

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mrlokans/locallibrary/internal/entities"
)

//go:embed fixtures/library.yaml
var defaultFixtures []byte

// Fixtures is a catalog snapshot loaded by the seed command. Books, copies and
// borrowers reference each other by name.
type Fixtures struct {
	Users     []UserFixture     `yaml:"users"`
	Genres    []string          `yaml:"genres"`
	Languages []string          `yaml:"languages"`
	Authors   []AuthorFixture   `yaml:"authors"`
	Books     []BookFixture     `yaml:"books"`
	Instances []InstanceFixture `yaml:"instances"`
}

type UserFixture struct {
	Username    string            `yaml:"username"`
	Email       string            `yaml:"email"`
	Password    string            `yaml:"password"`
	Role        entities.UserRole `yaml:"role"`
	Permissions []string          `yaml:"permissions"`
}

type AuthorFixture struct {
	FirstName   string `yaml:"first_name"`
	LastName    string `yaml:"last_name"`
	DateOfBirth string `yaml:"date_of_birth"`
	DateOfDeath string `yaml:"date_of_death"`
}

type BookFixture struct {
	Title    string   `yaml:"title"`
	Author   string   `yaml:"author"` // "First Last"
	Language string   `yaml:"language"`
	ISBN     string   `yaml:"isbn"`
	Summary  string   `yaml:"summary"`
	Genres   []string `yaml:"genres"`
}

type InstanceFixture struct {
	Book     string              `yaml:"book"`
	Imprint  string              `yaml:"imprint"`
	Status   entities.LoanStatus `yaml:"status"`
	Borrower string              `yaml:"borrower"`
	DueBack  string              `yaml:"due_back"`
}

// LoadFixtures reads fixtures from path, or the bundled sample library when
// path is empty.
func LoadFixtures(path string) (*Fixtures, error) {
	data := defaultFixtures
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("failed to read fixtures: %w", err)
		}
	}
	return ParseFixtures(data)
}

func ParseFixtures(data []byte) (*Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}
	for _, inst := range f.Instances {
		if inst.Status != "" && !inst.Status.IsValid() {
			return nil, fmt.Errorf("copy of %q has invalid status %q", inst.Book, inst.Status)
		}
	}
	return &f, nil
}

func parseDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", raw, err)
	}
	return &t, nil
}
