package organizer

import (
	"errors"
	"testing"
)

func TestDefaultNamingConfig(t *testing.T) {
	config := DefaultNamingConfig()

	if config.EpisodeFileFormat != "{show} - S{season:02}E{episode:02} - {title}" {
		t.Errorf("EpisodeFileFormat = %q", config.EpisodeFileFormat)
	}
	if config.TitleSeparator != " & " {
		t.Errorf("TitleSeparator = %q", config.TitleSeparator)
	}
	if config.TitleCase {
		t.Error("TitleCase should default to false")
	}
	if err := ValidateTemplate(config.EpisodeFileFormat); err != nil {
		t.Errorf("default template invalid: %v", err)
	}
}

func TestFormatEpisodeFile(t *testing.T) {
	config := DefaultNamingConfig()

	tests := []struct {
		name   string
		tokens EpisodeTokens
		want   string
	}{
		{
			name:   "single episode",
			tokens: EpisodeTokens{SeriesTitle: "Show Name", SeasonNumber: 1, Episodes: []int{2}, EpisodeTitles: []string{"Pilot"}},
			want:   "Show Name - S01E02 - Pilot",
		},
		{
			name:   "missing title drops segment",
			tokens: EpisodeTokens{SeriesTitle: "Show", SeasonNumber: 1, Episodes: []int{2}, EpisodeTitles: []string{""}},
			want:   "Show - S01E02",
		},
		{
			name:   "nil titles",
			tokens: EpisodeTokens{SeriesTitle: "Show", SeasonNumber: 3, Episodes: []int{10}},
			want:   "Show - S03E10",
		},
		{
			name:   "wide season widens",
			tokens: EpisodeTokens{SeriesTitle: "Show", SeasonNumber: 100, Episodes: []int{1}, EpisodeTitles: []string{"X"}},
			want:   "Show - S100E01 - X",
		},
		{
			name:   "wide episode widens",
			tokens: EpisodeTokens{SeriesTitle: "One Piece", SeasonNumber: 1, Episodes: []int{1071}, EpisodeTitles: []string{"Gear 5"}},
			want:   "One Piece - S01E1071 - Gear 5",
		},
		{
			name:   "illegal characters become dashes",
			tokens: EpisodeTokens{SeriesTitle: "Show", SeasonNumber: 1, Episodes: []int{2}, EpisodeTitles: []string{"What/If: Part 1?"}},
			want:   "Show - S01E02 - What-If- Part 1",
		},
		{
			name:   "season zero",
			tokens: EpisodeTokens{SeriesTitle: "Show", SeasonNumber: 0, Episodes: []int{1}, EpisodeTitles: []string{"Special"}},
			want:   "Show - S00E01 - Special",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := config.FormatEpisodeFile(tt.tokens)
			if got != tt.want {
				t.Errorf("FormatEpisodeFile() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatEpisodeFile_MultiEpisode(t *testing.T) {
	config := DefaultNamingConfig()

	tests := []struct {
		name   string
		tokens EpisodeTokens
		want   string
	}{
		{
			name:   "two titles joined",
			tokens: EpisodeTokens{SeriesTitle: "Show", SeasonNumber: 1, Episodes: []int{1, 2}, EpisodeTitles: []string{"Part One", "Part Two"}},
			want:   "Show - S01E01-E02 - Part One & Part Two",
		},
		{
			name:   "range of three",
			tokens: EpisodeTokens{SeriesTitle: "Show", SeasonNumber: 2, Episodes: []int{5, 6, 7}, EpisodeTitles: []string{"A", "B", "C"}},
			want:   "Show - S02E05-E07 - A & B & C",
		},
		{
			name:   "partial titles",
			tokens: EpisodeTokens{SeriesTitle: "Show", SeasonNumber: 1, Episodes: []int{1, 2}, EpisodeTitles: []string{"A", ""}},
			want:   "Show - S01E01-E02 - A",
		},
		{
			name:   "shared title collapses",
			tokens: EpisodeTokens{SeriesTitle: "Show", SeasonNumber: 1, Episodes: []int{1, 2}, EpisodeTitles: []string{"Finale", "Finale"}},
			want:   "Show - S01E01-E02 - Finale",
		},
		{
			name:   "non contiguous episodes listed",
			tokens: EpisodeTokens{SeriesTitle: "Show", SeasonNumber: 1, Episodes: []int{1, 3}},
			want:   "Show - S01E01E03",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := config.FormatEpisodeFile(tt.tokens)
			if got != tt.want {
				t.Errorf("FormatEpisodeFile() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatEpisodeFile_CustomFormat(t *testing.T) {
	tests := []struct {
		name     string
		template string
		tokens   EpisodeTokens
		want     string
	}{
		{
			name:     "cross style",
			template: "{show} {season}x{episode}",
			tokens:   EpisodeTokens{SeriesTitle: "Show", SeasonNumber: 1, Episodes: []int{2}},
			want:     "Show 01x02",
		},
		{
			name:     "cross style range",
			template: "{show} {season:1}x{episode}",
			tokens:   EpisodeTokens{SeriesTitle: "Show", SeasonNumber: 1, Episodes: []int{2, 3}},
			want:     "Show 1x02-03",
		},
		{
			name:     "year present",
			template: "{show} ({year}) - S{season:02}E{episode:02}",
			tokens:   EpisodeTokens{SeriesTitle: "Doctor Who", Year: "2005", SeasonNumber: 1, Episodes: []int{1}},
			want:     "Doctor Who (2005) - S01E01",
		},
		{
			name:     "empty year drops parentheses",
			template: "{show} ({year}) - S{season:02}E{episode:02}",
			tokens:   EpisodeTokens{SeriesTitle: "Show", SeasonNumber: 1, Episodes: []int{1}},
			want:     "Show - S01E01",
		},
		{
			name:     "quality tokens",
			template: "{Series Title} - S{season:00}E{episode:00} - {Episode Title} [{resolution} {source}]",
			tokens:   EpisodeTokens{SeriesTitle: "Show", SeasonNumber: 1, Episodes: []int{2}, EpisodeTitles: []string{"T"}, Resolution: "1080p", Source: "WEB-DL"},
			want:     "Show - S01E02 - T [1080p WEB-DL]",
		},
		{
			name:     "empty title between separators",
			template: "{show} - S{season:02}E{episode:02} - {title} - {resolution}",
			tokens:   EpisodeTokens{SeriesTitle: "Show", SeasonNumber: 1, Episodes: []int{2}, Resolution: "720p"},
			want:     "Show - S01E02 - 720p",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := NamingConfig{EpisodeFileFormat: tt.template}
			got := config.FormatEpisodeFile(tt.tokens)
			if got != tt.want {
				t.Errorf("FormatEpisodeFile() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatEpisodeFile_TitleCase(t *testing.T) {
	config := DefaultNamingConfig()
	config.TitleCase = true

	got := config.FormatEpisodeFile(EpisodeTokens{
		SeriesTitle:   "the lord and the rings",
		SeasonNumber:  1,
		Episodes:      []int{1},
		EpisodeTitles: []string{"a long way home"},
	})
	want := "The Lord and the Rings - S01E01 - A Long Way Home"
	if got != want {
		t.Errorf("FormatEpisodeFile() = %q, want %q", got, want)
	}
}

func TestFormatEpisodeFilename_KeepsExtension(t *testing.T) {
	config := DefaultNamingConfig()
	tokens := EpisodeTokens{SeriesTitle: "Show", SeasonNumber: 1, Episodes: []int{2}, EpisodeTitles: []string{"Pilot"}}

	if got := config.FormatEpisodeFilename(tokens, ".MKV"); got != "Show - S01E02 - Pilot.MKV" {
		t.Errorf("FormatEpisodeFilename() = %q", got)
	}
}

func TestFormatEpisodeFile_Deterministic(t *testing.T) {
	config := DefaultNamingConfig()
	tokens := EpisodeTokens{SeriesTitle: "Show: Origins", SeasonNumber: 4, Episodes: []int{1, 2}, EpisodeTitles: []string{"A*", "B?"}}

	first := config.FormatEpisodeFile(tokens)
	for i := 0; i < 5; i++ {
		if got := config.FormatEpisodeFile(tokens); got != first {
			t.Fatalf("run %d: %q != %q", i, got, first)
		}
	}
	if Sanitize(first) != first {
		t.Errorf("formatted name %q is not a sanitize fixed point", first)
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		n      int
		format string
		want   string
	}{
		{5, "", "05"},
		{5, "02", "05"},
		{5, "00", "05"},
		{5, "3", "005"},
		{5, "000", "005"},
		{123, "02", "123"},
		{5, "x", "05"},
		{0, "02", "00"},
	}

	for _, tt := range tests {
		if got := formatNumber(tt.n, tt.format); got != tt.want {
			t.Errorf("formatNumber(%d, %q) = %q, want %q", tt.n, tt.format, got, tt.want)
		}
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Show Name", "Show Name"},
		{`a<b>c:d"e/f\g|h?i*j`, "a-b-c-d-e-f-g-h-i-j"},
		{"tab\there", "tab-here"},
		{"  lots   of   space  ", "lots of space"},
		{"", ""},
	}

	for _, tt := range tests {
		got := Sanitize(tt.in)
		if got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if again := Sanitize(got); again != got {
			t.Errorf("Sanitize not idempotent: %q -> %q", got, again)
		}
	}
}

func TestTitleCase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"the office", "The Office"},
		{"THE BOYS", "The Boys"},
		{"a tale of the city", "A Tale Of the City"},
		{"  spaced   out  ", "Spaced Out"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := TitleCase(tt.in); got != tt.want {
			t.Errorf("TitleCase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidateTemplate(t *testing.T) {
	tests := []struct {
		template string
		wantErr  bool
	}{
		{"{show} - S{season:02}E{episode:02} - {title}", false},
		{"{Series Title} {season}x{Episode}", false},
		{"", true},
		{"   ", true},
		{"{show} - {title}", true},
		{"{show} - {episode} - {bogus}", true},
	}

	for _, tt := range tests {
		t.Run(tt.template, func(t *testing.T) {
			err := ValidateTemplate(tt.template)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateTemplate(%q) error = %v, wantErr %v", tt.template, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidTemplate) {
				t.Errorf("error %v is not ErrInvalidTemplate", err)
			}
		})
	}
}
