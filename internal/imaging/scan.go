package imaging

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SupportedExtensions are the image file extensions we recognize
var SupportedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".tiff": true,
	".webp": true,
}

// FileInfo identifies one discovered image file
type FileInfo struct {
	Path    string `json:"path"`
	Size    int64  `json:"size"`
	ModTime int64  `json:"modTime"` // Unix timestamp
}

// Scan walks the given roots for image files. Unreadable entries and
// hidden directories are skipped; a cancelled context stops the walk and
// returns what was found so far along with the context error.
func Scan(ctx context.Context, roots []string) ([]FileInfo, error) {
	start := time.Now()
	var files []FileInfo

	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			log.Printf("[IMAGING] Skipping unreadable root %s: %v", root, err)
			continue
		}
		if !info.IsDir() {
			log.Printf("[IMAGING] Skipping non-directory root %s", root)
			continue
		}

		err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return nil // Skip entries we can't access
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			if d.IsDir() {
				if strings.HasPrefix(d.Name(), ".") && path != root {
					return filepath.SkipDir
				}
				return nil
			}

			ext := strings.ToLower(filepath.Ext(path))
			if !SupportedExtensions[ext] {
				return nil
			}

			fileInfo, err := d.Info()
			if err != nil {
				return nil // Skip files we can't stat
			}

			files = append(files, FileInfo{
				Path:    path,
				Size:    fileInfo.Size(),
				ModTime: fileInfo.ModTime().Unix(),
			})
			return nil
		})
		if err != nil {
			return files, err
		}
	}

	log.Printf("[IMAGING] Found %d images in %d roots (%dms)",
		len(files), len(roots), time.Since(start).Milliseconds())
	return files, nil
}
