package validation

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
)

type FileType string

const (
	FileTypePNG  FileType = "png"
	FileTypeJPEG FileType = "jpeg"
	FileTypeGIF  FileType = "gif"
	FileTypeWEBP FileType = "webp"
	FileTypeBMP  FileType = "bmp"
	FileTypeTIFF FileType = "tiff"
	FileTypeAVIF FileType = "avif"
	FileTypeHEIC FileType = "heic"
)

var magicBytes = map[FileType][][]byte{
	FileTypePNG:  {{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}},
	FileTypeJPEG: {{0xFF, 0xD8, 0xFF}},
	FileTypeGIF:  {[]byte("GIF87a"), []byte("GIF89a")},
	FileTypeBMP:  {[]byte("BM")},
	FileTypeTIFF: {{0x49, 0x49, 0x2A, 0x00}, {0x4D, 0x4D, 0x00, 0x2A}},
}

// ISO-BMFF major brands found at offset 8 of an ftyp box.
var ftypBrands = map[string]FileType{
	"avif": FileTypeAVIF,
	"avis": FileTypeAVIF,
	"heic": FileTypeHEIC,
	"heix": FileTypeHEIC,
	"hevc": FileTypeHEIC,
	"heim": FileTypeHEIC,
	"heis": FileTypeHEIC,
	"mif1": FileTypeHEIC,
	"msf1": FileTypeHEIC,
}

var extensions = map[FileType][]string{
	FileTypePNG:  {".png"},
	FileTypeJPEG: {".jpg", ".jpeg", ".jpe"},
	FileTypeGIF:  {".gif"},
	FileTypeWEBP: {".webp"},
	FileTypeBMP:  {".bmp"},
	FileTypeTIFF: {".tif", ".tiff"},
	FileTypeAVIF: {".avif"},
	FileTypeHEIC: {".heic", ".heif"},
}

// DetectFileType sniffs the first bytes of file and rewinds it.
func DetectFileType(file io.ReadSeeker) (FileType, error) {
	buffer := make([]byte, 512)
	n, err := io.ReadFull(file, buffer)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", err
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	return detect(buffer[:n])
}

func detect(head []byte) (FileType, error) {
	if len(head) >= 12 && bytes.Equal(head[0:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WEBP")) {
		return FileTypeWEBP, nil
	}
	if len(head) >= 12 && bytes.Equal(head[4:8], []byte("ftyp")) {
		if ft, ok := ftypBrands[string(head[8:12])]; ok {
			return ft, nil
		}
		return "", fmt.Errorf("%w: ftyp brand %q", ErrUnsupportedFormat, head[8:12])
	}

	for fileType, signatures := range magicBytes {
		for _, signature := range signatures {
			if bytes.HasPrefix(head, signature) {
				return fileType, nil
			}
		}
	}

	return "", ErrInvalidFileType
}

func IsAllowedImageType(fileType FileType) bool {
	_, ok := extensions[fileType]
	return ok
}

// ValidateUpload checks size, extension and content of an uploaded image
// and returns the detected type.
func ValidateUpload(filename string, size, maxSize int64, file io.ReadSeeker) (FileType, error) {
	if size > maxSize {
		return "", fmt.Errorf("%w: %d > %d bytes", ErrFileTooLarge, size, maxSize)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !knownExtension(ext) {
		return "", fmt.Errorf("%w: %q", ErrInvalidFileType, ext)
	}

	fileType, err := DetectFileType(file)
	if err != nil {
		return "", err
	}
	if !IsAllowedImageType(fileType) {
		return "", ErrUnsupportedFormat
	}

	if lo.Contains(extensions[fileType], ext) {
		return fileType, nil
	}
	return "", fmt.Errorf("%w: %s content in %s file", ErrExtensionMismatch, fileType, ext)
}

func knownExtension(ext string) bool {
	return lo.Contains(lo.Flatten(lo.Values(extensions)), ext)
}
