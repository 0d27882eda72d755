// extract.go
package fetch

import (
	"archive/tar"
	"bufio"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
)

// decompressor wraps r according to the archive's file name
func decompressor(name string, r io.Reader) (io.Reader, error) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return gzip.NewReader(r)
	case strings.HasSuffix(lower, ".tar.bz2"), strings.HasSuffix(lower, ".tbz2"):
		return bzip2.NewReader(r), nil
	case strings.HasSuffix(lower, ".tar.xz"), strings.HasSuffix(lower, ".txz"):
		return xz.NewReader(r)
	case strings.HasSuffix(lower, ".tar"):
		return r, nil
	default:
		return nil, fmt.Errorf("unsupported archive format: %s", filepath.Base(name))
	}
}

// Extract unpacks a source tarball into destDir. It returns the source
// root: the single top-level directory of the archive when there is one,
// destDir otherwise.
func (f *Fetcher) Extract(archivePath, destDir string) (string, error) {
	f.logger.Printf("Extracting: %s -> %s", archivePath, destDir)

	file, err := os.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("opening archive: %w", err)
	}
	defer file.Close()

	r, err := decompressor(archivePath, bufio.NewReader(file))
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("creating directory %s: %w", destDir, err)
	}

	tr := tar.NewReader(r)
	fileCount := 0
	roots := make(map[string]struct{})

	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("reading tar entry: %w", err)
		}

		targetPath, err := safeJoin(destDir, header.Name)
		if err != nil {
			return "", err
		}
		if top := topLevel(header.Name); top != "" {
			roots[top] = struct{}{}
		}
		if err := checkParents(destDir, targetPath); err != nil {
			return "", err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(targetPath, 0755); err != nil {
				return "", fmt.Errorf("creating directory %s: %w", targetPath, err)
			}

		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
				return "", fmt.Errorf("creating parent directory for symlink: %w", err)
			}
			if err := checkLinkname(destDir, targetPath, header); err != nil {
				return "", err
			}
			if err := os.Symlink(header.Linkname, targetPath); err != nil && !os.IsExist(err) {
				return "", fmt.Errorf("creating symlink %s -> %s: %w", targetPath, header.Linkname, err)
			}

		case tar.TypeLink:
			linkTarget, err := safeJoin(destDir, header.Linkname)
			if err != nil {
				return "", err
			}
			if err := checkParents(destDir, linkTarget); err != nil {
				return "", err
			}
			if err := os.Link(linkTarget, targetPath); err != nil && !os.IsExist(err) {
				return "", fmt.Errorf("creating hard link %s: %w", targetPath, err)
			}

		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
				return "", fmt.Errorf("creating parent directory: %w", err)
			}

			if info, err := os.Lstat(targetPath); err == nil && info.Mode()&os.ModeSymlink != 0 {
				return "", fmt.Errorf("archive entry %s would write through a symlink", header.Name)
			}

			outFile, err := os.OpenFile(targetPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode).Perm())
			if err != nil {
				return "", fmt.Errorf("creating file %s: %w", targetPath, err)
			}

			written, err := io.Copy(outFile, tr)
			outFile.Close()
			if err != nil {
				return "", fmt.Errorf("writing file %s: %w", targetPath, err)
			}
			if written != header.Size {
				return "", fmt.Errorf("file size mismatch for %s: expected %d, got %d", targetPath, header.Size, written)
			}
			fileCount++

		default:
			f.logger.Printf("  ⚠️  Skipping unsupported file type %v for %s", header.Typeflag, header.Name)
		}
	}

	f.logger.Printf("  ✓ Extracted %d files", fileCount)

	if len(roots) == 1 {
		for top := range roots {
			root := filepath.Join(destDir, top)
			if info, err := os.Stat(root); err == nil && info.IsDir() {
				return root, nil
			}
		}
	}
	return destDir, nil
}

// safeJoin joins name under dir, rejecting entries that escape it
func safeJoin(dir, name string) (string, error) {
	target := filepath.Join(dir, name)
	if !within(dir, target) {
		return "", fmt.Errorf("archive entry escapes destination: %s", name)
	}
	return target, nil
}

// checkLinkname rejects symlinks pointing outside dir. Relative targets
// are resolved against the directory holding the link.
func checkLinkname(dir, target string, header *tar.Header) error {
	if filepath.IsAbs(header.Linkname) {
		return fmt.Errorf("archive entry %s: symlink target escapes destination: %s", header.Name, header.Linkname)
	}
	resolved := filepath.Join(filepath.Dir(target), header.Linkname)
	if !within(dir, resolved) {
		return fmt.Errorf("archive entry %s: symlink target escapes destination: %s", header.Name, header.Linkname)
	}
	return nil
}

// checkParents rejects entries whose already extracted parent
// directories include a symlink
func checkParents(dir, target string) error {
	rel, err := filepath.Rel(dir, filepath.Dir(target))
	if err != nil || rel == "." {
		return err
	}

	cur := dir
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		cur = filepath.Join(cur, part)
		info, err := os.Lstat(cur)
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("checking %s: %w", cur, err)
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("archive entry %s escapes destination through symlink %s", target, cur)
		}
	}
	return nil
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func topLevel(name string) string {
	name = strings.TrimPrefix(filepath.ToSlash(name), "./")
	top, _, _ := strings.Cut(name, "/")
	if top == "." {
		return ""
	}
	return top
}
