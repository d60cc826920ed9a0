package preservation

import (
	"fmt"
	"mime"
	"strings"

	"github.com/dmitrijs2005/preservd/internal/server/config"
)

// Naming builds the file names of the engine's own metadata files. These
// names are read by archive consumers and must stay stable.
type Naming struct {
	MetadataFormat string
	MetadataMajor  int
	MetadataExt    string
	PublicSchema   string
	PublicMajor    int
	PublicExt      string
}

func NamingFromConfig(cfg *config.Config) Naming {
	return Naming{
		MetadataFormat: cfg.MetadataFormat,
		MetadataMajor:  cfg.MetadataMajor,
		MetadataExt:    cfg.MetadataExt,
		PublicSchema:   cfg.PublicSchema,
		PublicMajor:    cfg.PublicMajor,
		PublicExt:      cfg.PublicExt,
	}
}

// MetadataFile returns "<id>.metadata.<format>.v<major>.<ext>".
func (n Naming) MetadataFile(id string) string {
	return fmt.Sprintf("%s.metadata.%s.v%d.%s", id, n.MetadataFormat, n.MetadataMajor, n.MetadataExt)
}

// PublicMetadataFile returns "<id>.public_metadata.<schema>.v<major>.<ext>".
func (n Naming) PublicMetadataFile(id string) string {
	return fmt.Sprintf("%s.public_metadata.%s.v%d.%s", id, n.PublicSchema, n.PublicMajor, n.PublicExt)
}

// IsInternal reports whether name is one of the engine's metadata files
// for object id, of any format or version.
func (n Naming) IsInternal(id, name string) bool {
	return strings.HasPrefix(name, id+".metadata.") || n.IsPublicMetadata(id, name)
}

// IsPublicMetadata reports whether name is a public metadata file for
// object id, of any schema or version.
func (n Naming) IsPublicMetadata(id, name string) bool {
	return strings.HasPrefix(name, id+".public_metadata.")
}

func (n Naming) MetadataMimeType() string {
	return mimeForExt(n.MetadataExt)
}

func (n Naming) PublicMimeType() string {
	return mimeForExt(n.PublicExt)
}

func mimeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case "json":
		return "application/json"
	case "xml":
		return "application/xml"
	}
	if t := mime.TypeByExtension("." + ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
