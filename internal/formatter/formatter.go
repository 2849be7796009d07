// package formatter provides functions to export detection results to various formats (CSV, Markdown, plain text, JSON)
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

	"github.com/desertthunder/moodtunes/internal/models"
)

// Supported export formats.
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
)

// Formats lists every supported export format.
var Formats = []string{FormatJSON, FormatCSV, FormatMarkdown, FormatText}

// DetectionExport is the serialized form of a [models.Detection].
type DetectionExport struct {
	ID        string           `json:"id,omitempty"`
	Emotion   string           `json:"emotion"`
	CreatedAt time.Time        `json:"created_at"`
	Tracks    models.TrackList `json:"tracks"`
}

// DetectionMetadata is a [DetectionExport] without its tracks.
type DetectionMetadata struct {
	ID         string    `json:"id,omitempty"`
	Emotion    string    `json:"emotion"`
	CreatedAt  time.Time `json:"created_at"`
	TrackCount int       `json:"track_count"`
	Playable   int       `json:"playable"`
}

// NewDetectionExport flattens d for serialization.
func NewDetectionExport(d *models.Detection) *DetectionExport {
	tracks := d.Tracks()
	if tracks == nil {
		tracks = models.TrackList{}
	}
	return &DetectionExport{ID: d.ID(), Emotion: d.Label(), CreatedAt: d.CreatedAt(), Tracks: tracks}
}

// Metadata summarizes the export without its tracks.
func (e *DetectionExport) Metadata() DetectionMetadata {
	return DetectionMetadata{
		ID:         e.ID,
		Emotion:    e.Emotion,
		CreatedAt:  e.CreatedAt,
		TrackCount: e.Tracks.Len(),
		Playable:   e.Tracks.Playable(),
	}
}

func (e *DetectionExport) baseName() string {
	if e.ID != "" {
		return e.ID
	}
	return "detection"
}

// ExportToCSV converts a detection to CSV format with columns: #, Name, Artist, Album Art, Preview
func ExportToCSV(export *DetectionExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"#", "Name", "Artist", "Album Art", "Preview"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, track := range export.Tracks {
		record := []string{
			strconv.Itoa(i + 1),
			track.Name,
			track.Artist,
			track.AlbumArtURL,
			track.PreviewURL,
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

// ExportToMarkdown converts a detection to Markdown format with optional cover image
func ExportToMarkdown(export *DetectionExport, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", export.Emotion)

	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}

	if !export.CreatedAt.IsZero() {
		fmt.Fprintf(&buf, "**Detected**: %s\n", export.CreatedAt.Format(time.RFC1123))
	}
	fmt.Fprintf(&buf, "**Tracks**: %d (%d with preview)\n\n", export.Tracks.Len(), export.Tracks.Playable())

	buf.WriteString("## Tracks\n\n")
	for i, track := range export.Tracks {
		fmt.Fprintf(&buf, "%d. %s - %s", i+1, track.Artist, track.Name)
		if track.HasPreview() {
			fmt.Fprintf(&buf, " [preview](%s)", track.PreviewURL)
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ExportToText converts a detection to plain text format
func ExportToText(export *DetectionExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Emotion: %s\n", export.Emotion)
	fmt.Fprintf(&buf, "Tracks: %d\n\n", export.Tracks.Len())

	for i, track := range export.Tracks {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, track.Artist, track.Name)
	}

	return buf.Bytes(), nil
}

// ExportToJSON converts a detection to indented JSON
func ExportToJSON(export *DetectionExport) ([]byte, error) {
	return marshalIndent(export)
}

// ToMetadataJSON generates a JSON representation of detection metadata (without tracks)
func ToMetadataJSON(export *DetectionExport) ([]byte, error) {
	return marshalIndent(export.Metadata())
}

func marshalIndent(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return data, nil
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	TracksFile   string
	MetadataFile string
}

// WriteCSVExport exports a detection to CSV format with accompanying metadata JSON file.
//
// Defaults to the detection ID as the base filename & creates {base}_tracks.csv and {base}_metadata.json
func WriteCSVExport(export *DetectionExport, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = export.baseName()
	}

	csvData, err := ExportToCSV(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	tracksFile := baseFilepath + "_tracks.csv"
	if err := os.WriteFile(tracksFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		TracksFile:   tracksFile,
		MetadataFile: metadataFile,
	}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// WriteMarkdownExport exports a detection to Markdown format in a dedicated directory.
//
// Directory name defaults to the detection ID.
// When imageURL is empty the album art of the first track is used as the cover. A failed download only drops the cover.
// Creates a directory structure: {dir}/README.md and optionally {dir}/cover.jpg
func WriteMarkdownExport(export *DetectionExport, outputDir string, imageURL string) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = export.baseName()
	}
	if imageURL == "" && export.Tracks.Len() > 0 {
		imageURL = export.Tracks[0].AlbumArtURL
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	var coverImageFilename string
	if imageURL != "" {
		imageData, err := DownloadImage(imageURL)
		if err == nil {
			coverImageFilename = "cover.jpg"
			coverImagePath := filepath.Join(outputDir, coverImageFilename)
			if err := os.WriteFile(coverImagePath, imageData, 0644); err != nil {
				coverImageFilename = ""
			} else {
				result.CoverImage = coverImagePath
				result.Files = append(result.Files, coverImagePath)
			}
		}
	}

	mdData, err := ExportToMarkdown(export, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)

	return result, nil
}

// WriteTextExport exports a detection to plain text format.
//
// Defaults to {id}_tracks.txt as the filename.
func WriteTextExport(export *DetectionExport, path string) (string, error) {
	if path == "" {
		path = export.baseName() + "_tracks.txt"
	}

	textData, err := ExportToText(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}

// WriteJSONExport exports a detection to JSON. Defaults to {id}.json as the filename.
func WriteJSONExport(export *DetectionExport, path string) (string, error) {
	if path == "" {
		path = export.baseName() + ".json"
	}

	data, err := ExportToJSON(export)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write JSON file: %w", err)
	}

	return path, nil
}

// WriteExport writes export into dir using format and returns the created files.
func WriteExport(export *DetectionExport, format, dir string) ([]string, error) {
	base := filepath.Join(dir, export.baseName())

	switch format {
	case FormatCSV:
		res, err := WriteCSVExport(export, base)
		if err != nil {
			return nil, err
		}
		return []string{res.TracksFile, res.MetadataFile}, nil
	case FormatMarkdown:
		res, err := WriteMarkdownExport(export, base, "")
		if err != nil {
			return nil, err
		}
		return res.Files, nil
	case FormatText:
		path, err := WriteTextExport(export, base+"_tracks.txt")
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	case FormatJSON, "":
		path, err := WriteJSONExport(export, base+".json")
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	default:
		return nil, fmt.Errorf("unsupported format %q (want one of %v)", format, Formats)
	}
}

// ManifestEntry records the outcome for one source image of a batch run.
type ManifestEntry struct {
	Source  string   `json:"source"`
	Emotion string   `json:"emotion,omitempty"`
	Tracks  int      `json:"tracks"`
	Files   []string `json:"files,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Manifest summarizes a batch run.
type Manifest struct {
	Format    string          `json:"format"`
	CreatedAt time.Time       `json:"created_at"`
	Total     int             `json:"total"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Entries   []ManifestEntry `json:"entries"`
}

// WriteManifest writes m as indented JSON to path.
func WriteManifest(m *Manifest, path string) error {
	data, err := marshalIndent(m)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
