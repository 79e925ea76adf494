package fitsio

import (
	"strconv"
	"strings"

	"github.com/bonimy/ibe/core/ibeerr"
)

// Card is one parsed 80-byte header card. Raw preserves the exact on-disk
// text (right-padded to 80 bytes) so callers that only rewrite a handful
// of keywords can pass the rest straight through.
type Card struct {
	Keyword string
	Value   string // unparsed value token, e.g. "20" or "'IMAGE   '"
	Comment string
	Raw     string
}

// readCards reads consecutive 2880-byte blocks starting at off until it
// finds the END card, returning every card in the header (including the
// blank and COMMENT/HISTORY cards) and the file offset of the first byte
// following the padded header.
func readCards(r readerAt, off int64) ([]Card, int64, error) {
	var cards []Card
	block := make([]byte, BlockSize)
	pos := off
	for {
		if _, err := r.ReadAt(block, pos); err != nil {
			return nil, 0, ibeerr.BadRequestf("fitsio: reading header block at %d: %v", pos, err)
		}
		pos += BlockSize
		done := false
		for i := 0; i < BlockSize/CardSize; i++ {
			line := string(block[i*CardSize : (i+1)*CardSize])
			if strings.TrimRight(line[:8], " ") == "END" {
				done = true
				break
			}
			cards = append(cards, parseCard(line))
		}
		if done {
			break
		}
	}
	return cards, pos, nil
}

// readerAt is the subset of io.ReaderAt fitsio needs; named locally so
// image.go's window reads and this file's header reads share one
// constraint without importing io just for the interface name.
type readerAt interface {
	ReadAt(p []byte, off int64) (int, error)
}

// parseCard splits an 80-byte line into keyword/value/comment, honoring
// the FITS rule that a value-bearing card has "= " at bytes 8:10.
func parseCard(line string) Card {
	keyword := strings.TrimRight(line[:8], " ")
	if len(line) < 10 || line[8:10] != "= " {
		return Card{Keyword: keyword, Raw: line, Comment: strings.TrimSpace(line[8:])}
	}
	rest := line[10:]
	value, comment := splitValueComment(rest)
	return Card{Keyword: keyword, Value: strings.TrimSpace(value), Comment: comment, Raw: line}
}

// splitValueComment separates a card's value token from its trailing "/
// comment", respecting quoted-string values where a "/" can appear inside
// the quotes.
func splitValueComment(rest string) (string, string) {
	if i := strings.IndexByte(rest, '\''); i >= 0 && isLikelyStringValue(rest, i) {
		// Find the closing quote, accounting for doubled '' as an escape.
		j := i + 1
		for j < len(rest) {
			if rest[j] == '\'' {
				if j+1 < len(rest) && rest[j+1] == '\'' {
					j += 2
					continue
				}
				break
			}
			j++
		}
		if j < len(rest) {
			value := rest[:j+1]
			remainder := rest[j+1:]
			if k := strings.IndexByte(remainder, '/'); k >= 0 {
				return value, strings.TrimSpace(remainder[k+1:])
			}
			return value, ""
		}
	}
	if k := strings.IndexByte(rest, '/'); k >= 0 {
		return rest[:k], strings.TrimSpace(rest[k+1:])
	}
	return rest, ""
}

func isLikelyStringValue(rest string, quoteIdx int) bool {
	return strings.TrimSpace(rest[:quoteIdx]) == ""
}

// unquoteString strips a FITS string value's surrounding quotes, undoubles
// escaped quotes, and trims trailing padding spaces (leading spaces inside
// the quotes are significant and preserved).
func unquoteString(v string) string {
	v = strings.TrimSpace(v)
	if len(v) < 2 || v[0] != '\'' || v[len(v)-1] != '\'' {
		return v
	}
	inner := v[1 : len(v)-1]
	inner = strings.ReplaceAll(inner, "''", "'")
	return strings.TrimRight(inner, " ")
}

func cardInt(cards []Card, keyword string, def int) int {
	for _, c := range cards {
		if c.Keyword == keyword {
			n, err := strconv.Atoi(strings.TrimSpace(c.Value))
			if err != nil {
				return def
			}
			return n
		}
	}
	return def
}

func cardFloat(cards []Card, keyword string, def float64) float64 {
	for _, c := range cards {
		if c.Keyword == keyword {
			f, err := strconv.ParseFloat(strings.TrimSpace(c.Value), 64)
			if err != nil {
				return def
			}
			return f
		}
	}
	return def
}

func cardString(cards []Card, keyword string) (string, bool) {
	for _, c := range cards {
		if c.Keyword == keyword {
			return unquoteString(c.Value), true
		}
	}
	return "", false
}

func cardBool(cards []Card, keyword string) (bool, bool) {
	for _, c := range cards {
		if c.Keyword == keyword {
			v := strings.TrimSpace(c.Value)
			return v == "T", true
		}
	}
	return false, false
}

// Card returns the first card for keyword, if present.
func (u *Unit) Card(keyword string) (Card, bool) {
	for _, c := range u.cards {
		if c.Keyword == keyword {
			return c, true
		}
	}
	return Card{}, false
}

// CardParts returns a keyword's value and comment split apart, already
// unquoted if it's a string value.
func (u *Unit) CardParts(keyword string) (value, comment string, ok bool) {
	c, found := u.Card(keyword)
	if !found {
		return "", "", false
	}
	if strings.HasPrefix(strings.TrimSpace(c.Value), "'") {
		return unquoteString(c.Value), c.Comment, true
	}
	return strings.TrimSpace(c.Value), c.Comment, true
}

// HeaderCards returns the full list of cards for this HDU. For a
// tile-compressed image HDU (XTENSION=BINTABLE, ZIMAGE=T), it returns the
// synthesized plain-image equivalent instead of the raw binary-table
// header - core/header and core/cutout only ever need to reason about
// plain image headers, never about the compression convention's table
// encoding of one.
func (u *Unit) HeaderCards() []Card {
	if !u.isCompressed {
		return u.cards
	}
	return synthesizeImageHeader(u.cards)
}

// structuralBinTableKeywords are BINTABLE/tile-compression bookkeeping
// keywords that don't describe the decompressed image and are dropped
// when synthesizing a plain-image header from a compressed one.
var structuralBinTableKeywords = map[string]bool{
	"XTENSION": true, "BITPIX": true, "NAXIS": true, "NAXIS1": true, "NAXIS2": true,
	"TFIELDS": true, "PCOUNT": true, "GCOUNT": true, "THEAP": true,
	"ZIMAGE": true, "ZCMPTYPE": true, "ZBITPIX": true, "ZNAXIS": true,
	"ZSIMPLE": true, "ZEXTEND": true, "ZBLOCKED": true, "ZTENSION": true,
	"ZPCOUNT": true, "ZGCOUNT": true, "ZHECKSUM": true,
}

func synthesizeImageHeader(cards []Card) []Card {
	zbitpix := cardInt(cards, "ZBITPIX", cardInt(cards, "BITPIX", 8))
	znaxis := cardInt(cards, "ZNAXIS", 0)

	out := []Card{
		intCard("SIMPLE", 1, "conforms to FITS standard"),
		intCard("BITPIX", zbitpix, "array data type"),
		intCard("NAXIS", znaxis, "number of array dimensions"),
	}
	for i := 1; i <= znaxis; i++ {
		key := "ZNAXIS" + strconv.Itoa(i)
		out = append(out, intCard("NAXIS"+strconv.Itoa(i), cardInt(cards, key, 0), ""))
	}

	for _, c := range cards {
		if structuralBinTableKeywords[c.Keyword] {
			continue
		}
		if strings.HasPrefix(c.Keyword, "TTYPE") || strings.HasPrefix(c.Keyword, "TFORM") ||
			strings.HasPrefix(c.Keyword, "TSCAL") || strings.HasPrefix(c.Keyword, "TZERO") ||
			strings.HasPrefix(c.Keyword, "TDIM") || strings.HasPrefix(c.Keyword, "ZTILE") ||
			strings.HasPrefix(c.Keyword, "ZNAME") || strings.HasPrefix(c.Keyword, "ZVAL") ||
			strings.HasPrefix(c.Keyword, "ZNAXIS") {
			continue
		}
		out = append(out, c)
	}
	return out
}

func intCard(keyword string, value int, comment string) Card {
	v := strconv.Itoa(value)
	return Card{Keyword: keyword, Value: v, Comment: comment}
}
