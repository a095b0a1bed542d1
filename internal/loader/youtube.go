package loader

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// transcriptLanguages are tried in order until one returns captions.
var transcriptLanguages = []string{"en", "ru"}

// youtubeVideoID extracts the video id from watch and short-link URLs.
// Returns "" for anything that is not a YouTube URL.
func youtubeVideoID(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	switch host {
	case "youtube.com", "m.youtube.com":
		return u.Query().Get("v")
	case "youtu.be":
		return strings.TrimPrefix(u.Path, "/")
	}
	return ""
}

// loadTranscript fetches captions through the public timedtext endpoint.
// Captions exist only for videos where the author enabled them.
func loadTranscript(ctx context.Context, videoID string) (string, error) {
	for _, lang := range transcriptLanguages {
		text, err := fetchTimedText(ctx, videoID, lang)
		if err == nil && text != "" {
			return text, nil
		}
	}
	return "", errors.New("no captions available")
}

func fetchTimedText(ctx context.Context, videoID, lang string) (string, error) {
	endpoint := fmt.Sprintf("https://www.youtube.com/api/timedtext?v=%s&lang=%s", url.QueryEscape(videoID), lang)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("timedtext status %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return parseTimedText(body)
}

func parseTimedText(data []byte) (string, error) {
	var transcript struct {
		Texts []struct {
			Value string `xml:",chardata"`
		} `xml:"text"`
	}
	if err := xml.Unmarshal(data, &transcript); err != nil {
		return "", err
	}
	lines := make([]string, 0, len(transcript.Texts))
	for _, t := range transcript.Texts {
		line := strings.TrimSpace(html.UnescapeString(t.Value))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, " "), nil
}
