package vector

import (
	"fmt"
	"strconv"
	"strings"
)

// ParagraphID builds the vector ID for paragraph n of section in document docID.
func ParagraphID(docID, section string, n int) string {
	return fmt.Sprintf("%s#%s#%d", docID, section, n)
}

// DocumentPrefix is the ID prefix shared by every paragraph of docID.
func DocumentPrefix(docID string) string {
	return docID + "#"
}

// ParseParagraphID splits an ID produced by ParagraphID.
func ParseParagraphID(id string) (docID, section string, n int, err error) {
	last := strings.LastIndexByte(id, '#')
	if last < 0 {
		return "", "", 0, fmt.Errorf("invalid paragraph id %q", id)
	}
	mid := strings.LastIndexByte(id[:last], '#')
	if mid < 0 {
		return "", "", 0, fmt.Errorf("invalid paragraph id %q", id)
	}
	n, err = strconv.Atoi(id[last+1:])
	if err != nil {
		return "", "", 0, fmt.Errorf("invalid paragraph id %q: %w", id, err)
	}
	return id[:mid], id[mid+1 : last], n, nil
}
