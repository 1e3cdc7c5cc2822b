package models

import "testing"

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Testland", want: "testland"},
		{in: "North Rhine-Westphalia", want: "north_rhine-westphalia"},
		{in: "  Trailing Space ", want: "trailing_space"},
		{in: "Bosnia/Herzegovina", want: "bosnia_herzegovina"},
	}
	for _, tt := range tests {
		if got := NormalizeName(tt.in); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCountryFileName(t *testing.T) {
	tests := []struct {
		name    string
		country CountryRecord
		want    string
	}{
		{
			name:    "english name present",
			country: CountryRecord{ID: "1", Metadata: Metadata(`{"names":{"name:en":"Test Land"}}`)},
			want:    "test_land",
		},
		{
			name:    "metadata absent",
			country: CountryRecord{ID: "51477"},
			want:    "country_51477",
		},
		{
			name:    "no english name",
			country: CountryRecord{ID: "2", Metadata: Metadata(`{"names":{"name":"Deutschland"}}`)},
			want:    "country_2",
		},
		{
			name:    "empty english name",
			country: CountryRecord{ID: "3", Metadata: Metadata(`{"names":{"name:en":""}}`)},
			want:    "country_3",
		},
		{
			name:    "parent directory name",
			country: CountryRecord{ID: "4", Metadata: Metadata(`{"names":{"name:en":".."}}`)},
			want:    "country_4",
		},
		{
			name:    "current directory name",
			country: CountryRecord{ID: "5", Metadata: Metadata(`{"names":{"name:en":" . "}}`)},
			want:    "country_5",
		},
		{
			name:    "dots inside a name",
			country: CountryRecord{ID: "6", Metadata: Metadata(`{"names":{"name:en":"St. Lucia"}}`)},
			want:    "st._lucia",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountryFileName(tt.country); got != tt.want {
				t.Errorf("CountryFileName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProvinceFileName(t *testing.T) {
	p := ProvinceRecord{ID: "62611", Metadata: Metadata(`{"names":{"name:en":"Lower Saxony"}}`)}
	if got := ProvinceFileName(p); got != "lower_saxony" {
		t.Errorf("ProvinceFileName() = %q, want %q", got, "lower_saxony")
	}

	// deterministic for the same metadata
	if ProvinceFileName(p) != ProvinceFileName(p) {
		t.Error("ProvinceFileName() is not deterministic")
	}

	fallback := ProvinceRecord{ID: "62611"}
	if got := ProvinceFileName(fallback); got != "province_62611" {
		t.Errorf("ProvinceFileName() = %q, want %q", got, "province_62611")
	}

	for _, dots := range []string{".", "..", "..."} {
		p := ProvinceRecord{ID: "7", Metadata: Metadata(`{"names":{"name:en":"` + dots + `"}}`)}
		if got := ProvinceFileName(p); got != "province_7" {
			t.Errorf("ProvinceFileName(name %q) = %q, want %q", dots, got, "province_7")
		}
	}
}
