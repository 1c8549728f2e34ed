package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseMatchID(t *testing.T) {
	tests := []struct {
		in      string
		want    MatchID
		wantErr bool
	}{
		{in: "42", want: 42},
		{in: "9223372036854775807", want: 9223372036854775807},
		{in: "0", wantErr: true},
		{in: "-3", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "", wantErr: true},
		{in: "1.5", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMatchID(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMatchID(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseMatchID(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseUserID(t *testing.T) {
	if id, err := ParseUserID("7"); err != nil || id != 7 {
		t.Errorf("ParseUserID(\"7\") = %d, %v", id, err)
	}
	if _, err := ParseUserID("0"); err == nil {
		t.Error("expected error for zero user id")
	}
}

func TestFavouriteRecordWireNames(t *testing.T) {
	link := "https://www.fotmob.com/match/1"
	rec := FavouriteRecord{
		ID:       3,
		MatchID:  42,
		UserID:   7,
		IsActive: true,
		Match: &MatchSnapshot{
			ID:       42,
			Date:     "2026-10-14",
			HomeTeam: TeamSummary{ID: 1, Name: "Home"},
			AwayTeam: TeamSummary{ID: 2, Name: "Away"},
			Link:     &link,
		},
	}
	b, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out := string(b)
	for _, want := range []string{`"id_favorito":3`, `"id_partido":42`, `"id_usuario":7`, `"partido":{`, `"equipo_local":{`, `"enlace_fotmob":`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}
}
