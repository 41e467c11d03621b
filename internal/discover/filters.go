package discover

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/handsomefox/nextep/internal/media"
)

// Limits are the product constants bounding the sliders.
type Limits struct {
	// VoteCountCeiling is the top of the vote count slider. An upper bound at
	// or above it means unbounded.
	VoteCountCeiling int `toml:"vote_count_ceiling"`
	YearFloor        int `toml:"year_floor"`
	YearCeiling      int `toml:"year_ceiling"`
}

const (
	DefaultVoteCountCeiling = 20000
	DefaultYearFloor        = 1900
	DefaultYearCeiling      = 2026

	MaxVoteAverage = 10.0
)

func DefaultLimits() Limits {
	return Limits{
		VoteCountCeiling: DefaultVoteCountCeiling,
		YearFloor:        DefaultYearFloor,
		YearCeiling:      DefaultYearCeiling,
	}
}

func (l Limits) validate() error {
	if l.VoteCountCeiling <= 0 {
		return fmt.Errorf("vote count ceiling must be positive, got %d", l.VoteCountCeiling)
	}
	if l.YearFloor <= 0 || l.YearCeiling < l.YearFloor {
		return fmt.Errorf("invalid year range %d-%d", l.YearFloor, l.YearCeiling)
	}
	return nil
}

// AgeRating is a certification bound. Zero means unset.
type AgeRating int

var AgeRatings = []AgeRating{10, 12, 14, 16, 18}

func (a AgeRating) Valid() bool {
	return a == 0 || slices.Contains(AgeRatings, a)
}

func (a AgeRating) String() string {
	if a == 0 {
		return ""
	}
	return strconv.Itoa(int(a))
}

type SortField string

const (
	SortPopularity  SortField = "popularity"
	SortVoteAverage SortField = "vote_average"
	SortVoteCount   SortField = "vote_count"
	SortReleaseDate SortField = "primary_release_date"
	SortAirDate     SortField = "first_air_date"
	SortRevenue     SortField = "revenue"
	SortTitle       SortField = "title"
)

func (s SortField) Valid() bool {
	switch s {
	case SortPopularity, SortVoteAverage, SortVoteCount, SortReleaseDate, SortAirDate, SortRevenue, SortTitle:
		return true
	}
	return false
}

// param maps the field to the catalog's name for kind.
func (s SortField) param(kind media.Kind) string {
	switch s {
	case SortReleaseDate, SortAirDate:
		if kind == media.TV {
			return string(SortAirDate)
		}
		return string(SortReleaseDate)
	case SortTitle:
		if kind == media.TV {
			return "original_name"
		}
		return "original_title"
	default:
		return string(s)
	}
}

type SortDirection string

const (
	Asc  SortDirection = "asc"
	Desc SortDirection = "desc"
)

func (d SortDirection) Valid() bool { return d == Asc || d == Desc }

type FloatRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type IntRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// FilterState is everything the user can tweak on the discovery screen.
type FilterState struct {
	Query          string        `json:"query"`
	MediaTypes     []media.Kind  `json:"media_types"`
	Anime          bool          `json:"anime"`
	GenreIDs       []string      `json:"genre_ids"`
	MatchAllGenres bool          `json:"match_all_genres"`
	MinAgeRating   AgeRating     `json:"min_age_rating,omitempty"`
	MaxAgeRating   AgeRating     `json:"max_age_rating,omitempty"`
	VoteAverage    FloatRange    `json:"vote_average"`
	VoteCount      IntRange      `json:"vote_count"`
	ReleaseYear    IntRange      `json:"release_year"`
	SortField      SortField     `json:"sort_field"`
	SortDirection  SortDirection `json:"sort_direction"`
}

// Defaults is the state a fresh discovery screen starts with.
func Defaults(l Limits) FilterState {
	return FilterState{
		MediaTypes:    []media.Kind{media.Movie},
		VoteAverage:   FloatRange{Min: 0, Max: MaxVoteAverage},
		VoteCount:     IntRange{Min: 0, Max: l.VoteCountCeiling},
		ReleaseYear:   IntRange{Min: l.YearFloor, Max: l.YearCeiling},
		SortField:     SortPopularity,
		SortDirection: Desc,
	}
}

func (f *FilterState) Clone() FilterState {
	out := *f
	out.MediaTypes = slices.Clone(f.MediaTypes)
	out.GenreIDs = slices.Clone(f.GenreIDs)
	return out
}

func (f *FilterState) HasKind(k media.Kind) bool {
	return slices.Contains(f.MediaTypes, k)
}

// PrimaryKind picks the single kind discover mode queries.
func (f *FilterState) PrimaryKind() media.Kind {
	if f.HasKind(media.Movie) {
		return media.Movie
	}
	if f.HasKind(media.TV) {
		return media.TV
	}
	return media.Movie
}

// SearchText returns the trimmed query and whether it is long enough to
// switch to text search.
func (f *FilterState) SearchText() (string, bool) {
	q := strings.TrimSpace(f.Query)
	return q, utf8.RuneCountInString(q) >= minQueryLen
}

// Validate checks every range is ordered and inside l.
func (f *FilterState) Validate(l Limits) error {
	var errs []error
	for _, k := range f.MediaTypes {
		if !k.Valid() {
			errs = append(errs, fmt.Errorf("invalid media type %q", k))
		}
	}
	for _, id := range f.GenreIDs {
		if n, err := strconv.Atoi(id); err != nil || n <= 0 {
			errs = append(errs, fmt.Errorf("invalid genre id %q", id))
		}
	}
	if !f.MinAgeRating.Valid() || !f.MaxAgeRating.Valid() {
		errs = append(errs, errors.New("age rating must be one of 10, 12, 14, 16, 18"))
	} else if f.MinAgeRating != 0 && f.MaxAgeRating != 0 && f.MinAgeRating > f.MaxAgeRating {
		errs = append(errs, errors.New("min age rating above max"))
	}
	if v := f.VoteAverage; math.IsNaN(v.Min) || math.IsNaN(v.Max) || v.Min < 0 || v.Max > MaxVoteAverage || v.Min > v.Max {
		errs = append(errs, fmt.Errorf("invalid vote average range %g-%g", v.Min, v.Max))
	}
	if v := f.VoteCount; v.Min < 0 || v.Min > v.Max {
		errs = append(errs, fmt.Errorf("invalid vote count range %d-%d", v.Min, v.Max))
	}
	if y := f.ReleaseYear; y.Min < l.YearFloor || y.Max > l.YearCeiling || y.Min > y.Max {
		errs = append(errs, fmt.Errorf("invalid release year range %d-%d", y.Min, y.Max))
	}
	if !f.SortField.Valid() {
		errs = append(errs, fmt.Errorf("invalid sort field %q", f.SortField))
	}
	if !f.SortDirection.Valid() {
		errs = append(errs, fmt.Errorf("invalid sort direction %q", f.SortDirection))
	}
	return errors.Join(errs...)
}
