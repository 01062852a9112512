package portability

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pierrec/lz4/v4"

	"github.com/lotas/tabvault/internal/domain"
	"github.com/lotas/tabvault/internal/storage"
	"github.com/lotas/tabvault/internal/types"
)

// mozlz4 header: 8-byte magic "mozLz40\x00"
var mozLz4Magic = []byte("mozLz40\x00")

// DecompressMozLz4 decompresses data in Mozilla's mozlz4 format:
// 8-byte magic + 4-byte LE uint32 uncompressed size + lz4 block data.
func DecompressMozLz4(data []byte) ([]byte, error) {
	const headerSize = 12 // 8 magic + 4 size

	if len(data) < headerSize {
		return nil, fmt.Errorf("mozlz4: data too short (%d bytes)", len(data))
	}
	for i := 0; i < len(mozLz4Magic); i++ {
		if data[i] != mozLz4Magic[i] {
			return nil, fmt.Errorf("mozlz4: invalid header magic")
		}
	}

	uncompressedSize := binary.LittleEndian.Uint32(data[8:12])

	dst := make([]byte, uncompressedSize)
	n, err := lz4.UncompressBlock(data[headerSize:], dst)
	if err != nil {
		return nil, fmt.Errorf("mozlz4: decompress failed: %w", err)
	}
	return dst[:n], nil
}

// Raw JSON types for Firefox session file parsing.
type sessionEntry struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

type sessionTab struct {
	Entries []sessionEntry `json:"entries"`
	Index   int            `json:"index"`
	Image   string         `json:"image"`
}

type sessionWindow struct {
	Tabs []sessionTab `json:"tabs"`
}

type rawSession struct {
	Windows []sessionWindow `json:"windows"`
}

// ParseSessionTabs extracts the current entry of every open tab from raw
// Firefox session JSON and converts each into an unsaved tab record (no ID,
// no dateAdded; the merge import fills those in).
func ParseSessionTabs(data []byte) ([]types.Tab, error) {
	var raw rawSession
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse session JSON: %w", err)
	}

	var tabs []types.Tab
	for _, window := range raw.Windows {
		for _, rt := range window.Tabs {
			if len(rt.Entries) == 0 {
				continue
			}
			// index is 1-based; current page is entries[index-1].
			entryIdx := rt.Index - 1
			if entryIdx < 0 || entryIdx >= len(rt.Entries) {
				entryIdx = len(rt.Entries) - 1
			}
			entry := rt.Entries[entryIdx]

			tabs = append(tabs, types.Tab{
				URL:     entry.URL,
				Domain:  domain.Extract(entry.URL),
				Title:   entry.Title,
				Labels:  []string{},
				Favicon: rt.Image,
			})
		}
	}
	return tabs, nil
}

// ReadSessionFile reads and decompresses a Firefox session recovery file
// from the given profile directory. It tries recovery.jsonlz4 first (active
// session), then previous.jsonlz4 (last closed session).
func ReadSessionFile(profileDir string) ([]types.Tab, error) {
	backupDir := filepath.Join(profileDir, "sessionstore-backups")
	var data []byte
	var err error
	for _, name := range []string{"recovery.jsonlz4", "previous.jsonlz4"} {
		data, err = os.ReadFile(filepath.Join(backupDir, name))
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("no session file found in %s", backupDir)
	}

	decompressed, err := DecompressMozLz4(data)
	if err != nil {
		return nil, fmt.Errorf("decompress session file: %w", err)
	}
	return ParseSessionTabs(decompressed)
}

// ImportFirefoxSession merge-imports the open tabs of a Firefox profile.
// Tabs whose URL is already saved are skipped; the returned counts match
// the JSON merge import.
func ImportFirefoxSession(m *storage.Manager, profileDir string) (Result, error) {
	tabs, err := ReadSessionFile(profileDir)
	if err != nil {
		return Result{}, err
	}
	doc := &Document{
		Version: Version,
		Data:    DocumentData{Tabs: tabs},
	}
	return importMerge(m, doc)
}
