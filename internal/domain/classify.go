package domain

import "strings"

var fileTypeByMIME = map[string]FileType{
	MIMEPDF:  FileTypePDF,
	MIMEPPTX: FileTypePPTX,
	MIMEDOCX: FileTypeDOCX,
}

// ClassifyMIME maps a MIME type to a FileType by exact match.
func ClassifyMIME(mime string) FileType {
	if ft, ok := fileTypeByMIME[mime]; ok {
		return ft
	}
	return FileTypeUnknown
}

// Classify prefers the declared MIME type and falls back to the sniffed one
// when the declared value is missing or not one of the known types.
func Classify(declared, sniffed string) FileType {
	if ft := ClassifyMIME(declared); ft != FileTypeUnknown {
		return ft
	}
	return ClassifyMIME(baseMIME(sniffed))
}

// baseMIME drops parameters such as "; charset=binary".
func baseMIME(mime string) string {
	if idx := strings.IndexByte(mime, ';'); idx >= 0 {
		mime = mime[:idx]
	}
	return strings.TrimSpace(mime)
}
