package onlineresolver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(120, nil)
	c.baseURL = srv.URL
	return c
}

func TestSearchSuccessPrefersPrefixMatch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(searchResponse{
			ResultCount: 2,
			Results: []searchResult{
				{ArtistName: "Wrong Artist", TrackName: "Completely Different Song"},
				{ArtistName: "The Weeknd", TrackName: "Blinding Lights"},
			},
		})
	})

	result, err := c.Search(context.Background(), "Blinding Lights", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != OutcomeSuccess || result.ArtistName != "The Weeknd" {
		t.Errorf("result = %+v, want success/The Weeknd", result)
	}
}

func TestSearchSuccessPrefersPrefixMatchWithAlbumHint(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(searchResponse{
			ResultCount: 2,
			Results: []searchResult{
				{ArtistName: "Wrong Artist", TrackName: "Completely Different Song"},
				{ArtistName: "The Weeknd", TrackName: "Blinding Lights"},
			},
		})
	})

	// An album hint widens the search term ("term" sent to iTunes), but the
	// prefix match must still be judged against the title alone, since
	// trackName never contains the album text.
	result, err := c.Search(context.Background(), "Blinding Lights", "After Hours", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != OutcomeSuccess || result.ArtistName != "The Weeknd" {
		t.Errorf("result = %+v, want success/The Weeknd", result)
	}
}

func TestSearchRetriesWithoutAlbumOnZeroResults(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		term := r.URL.Query().Get("term")
		if calls == 1 {
			json.NewEncoder(w).Encode(searchResponse{ResultCount: 0})
			return
		}
		if term == "" {
			t.Errorf("second attempt had empty term")
		}
		json.NewEncoder(w).Encode(searchResponse{
			ResultCount: 1,
			Results:     []searchResult{{ArtistName: "Found Artist", TrackName: "Some Song"}},
		})
	})

	result, err := c.Search(context.Background(), "Some Song", "Some Album", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2 (album-hint retry)", calls)
	}
	if result.Outcome != OutcomeSuccess || result.ArtistName != "Found Artist" {
		t.Errorf("result = %+v, want success/Found Artist", result)
	}
}

func TestSearchNotFoundAfterBothAttemptsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(searchResponse{ResultCount: 0})
	})

	result, err := c.Search(context.Background(), "Nonexistent Song", "Nonexistent Album", "")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if result.Outcome != OutcomeNotFound {
		t.Errorf("Outcome = %v, want not_found", result.Outcome)
	}
}

func TestSearch403MarksRateLimitedNotFailed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	result, err := c.Search(context.Background(), "Some Song", "", "")
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("err = %v, want ErrRateLimited", err)
	}
	if result.Outcome != OutcomeRateLimited {
		t.Errorf("Outcome = %v, want rate_limited", result.Outcome)
	}
}

func TestSearchMalformedJSONIsInvalid(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	})

	result, err := c.Search(context.Background(), "Some Song", "", "")
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("err = %v, want ErrInvalid", err)
	}
	if result.Outcome != OutcomeInvalid {
		t.Errorf("Outcome = %v, want invalid", result.Outcome)
	}
}

func TestSearch5xxIsNetworkError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	result, err := c.Search(context.Background(), "Some Song", "", "")
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("err = %v, want ErrNetwork", err)
	}
	if result.Outcome != OutcomeNetworkError {
		t.Errorf("Outcome = %v, want network_error", result.Outcome)
	}
}
