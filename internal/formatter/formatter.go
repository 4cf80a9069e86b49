// package formatter renders tracks, playlists and playback state for the terminal and exports
// playlists to CSV, Markdown and plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/desertthunder/aerox/internal/models"
)

// PlaylistExport is a playlist together with its tracks.
type PlaylistExport struct {
	Playlist models.Playlist `json:"playlist"`
	Tracks   []models.Track  `json:"tracks"`
}

// ExportToCSV writes one row per track with columns: ID, Name, Artists, Album, Duration
func ExportToCSV(export *PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"ID", "Name", "Artists", "Album", "Duration"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range export.Tracks {
		record := []string{
			track.ID,
			track.Name,
			track.ArtistNames(),
			track.Album.Name,
			strconv.Itoa(track.DurationMS / 1000),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportToMarkdown renders the playlist as a Markdown document, linking imageFilename as the cover
// when it is set.
func ExportToMarkdown(export *PlaylistExport, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", export.Playlist.Name)
	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}
	if export.Playlist.Owner != "" {
		fmt.Fprintf(&buf, "**Owner**: %s\n", export.Playlist.Owner)
	}
	fmt.Fprintf(&buf, "**Tracks**: %d\n\n", len(export.Tracks))

	buf.WriteString("## Tracks\n\n")
	for i, track := range export.Tracks {
		album := ""
		if track.Album.Name != "" {
			album = fmt.Sprintf(" (%s)", track.Album.Name)
		}
		fmt.Fprintf(&buf, "%d. %s - %s%s [%s]\n", i+1, track.ArtistNames(), track.Name, album,
			models.FormatDuration(track.DurationMS))
	}
	return buf.Bytes(), nil
}

// ExportToText renders the playlist as numbered "artists - name" lines.
func ExportToText(export *PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", export.Playlist.Name)
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(export.Tracks))
	for i, track := range export.Tracks {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, track.ArtistNames(), track.Name)
	}
	return buf.Bytes(), nil
}

// DownloadImage fetches a cover image.
func DownloadImage(client *http.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return data, nil
}

// CSVExportResult contains the paths of files created by [WriteCSVExport]
type CSVExportResult struct {
	TracksFile   string
	MetadataFile string
}

// WriteCSVExport creates {base}_tracks.csv and {base}_metadata.json. base defaults to the playlist ID.
func WriteCSVExport(export *PlaylistExport, base string) (*CSVExportResult, error) {
	if base == "" {
		base = export.Playlist.ID
	}

	data, err := ExportToCSV(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}
	tracksFile := base + "_tracks.csv"
	if err := os.WriteFile(tracksFile, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	meta, err := json.MarshalIndent(export.Playlist, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}
	metadataFile := base + "_metadata.json"
	if err := os.WriteFile(metadataFile, meta, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{TracksFile: tracksFile, MetadataFile: metadataFile}, nil
}

// MarkdownExportResult contains information about files created by [WriteMarkdownExport]
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// WriteMarkdownExport writes {dir}/README.md and, when the playlist has an image that downloads,
// {dir}/cover.jpg. dir defaults to the playlist ID.
func WriteMarkdownExport(export *PlaylistExport, dir string, client *http.Client) (*MarkdownExportResult, error) {
	if dir == "" {
		dir = export.Playlist.ID
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{Directory: dir, Files: []string{}}

	var cover string
	if len(export.Playlist.Images) > 0 {
		if data, err := DownloadImage(client, export.Playlist.Images[0].URL); err == nil {
			path := filepath.Join(dir, "cover.jpg")
			if err := os.WriteFile(path, data, 0644); err == nil {
				cover = "cover.jpg"
				result.CoverImage = path
				result.Files = append(result.Files, path)
			}
		}
	}

	data, err := ExportToMarkdown(export, cover)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}
	mdFile := filepath.Join(dir, "README.md")
	if err := os.WriteFile(mdFile, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}
	result.Files = append(result.Files, mdFile)
	return result, nil
}

// WriteTextExport writes the plain text export, defaulting to {playlist.ID}_tracks.txt.
func WriteTextExport(export *PlaylistExport, path string) (string, error) {
	if path == "" {
		path = export.Playlist.ID + "_tracks.txt"
	}

	data, err := ExportToText(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}
	return path, nil
}
