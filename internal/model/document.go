package model

import "time"

// PageText holds the extracted text of a single document page.
type PageText struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// Document is the converted form of a source report: per-page text plus
// conversion metadata. DOCX sources produce a single logical page.
type Document struct {
	Path        string     `json:"path"`
	Title       string     `json:"title,omitempty"`
	Format      string     `json:"format"`
	Converter   string     `json:"converter"`
	Pages       []PageText `json:"pages"`
	Checksum    string     `json:"checksum"`
	ConvertedAt time.Time  `json:"converted_at"`
}

// PageCount returns the number of pages with extracted text.
func (d *Document) PageCount() int {
	return len(d.Pages)
}

// Chunk is one extraction unit: a bounded span of document text.
type Chunk struct {
	ID            string `json:"id"`
	PageStart     int    `json:"page_start"`
	PageEnd       int    `json:"page_end"`
	Text          string `json:"text"`
	TokenEstimate int    `json:"token_estimate"`
}

// DocumentMeta is the sidecar metadata written next to the chunk file.
type DocumentMeta struct {
	Path          string    `json:"path"`
	Title         string    `json:"title,omitempty"`
	Format        string    `json:"format"`
	Converter     string    `json:"converter"`
	Pages         int       `json:"pages"`
	Chunks        int       `json:"chunks"`
	Checksum      string    `json:"checksum"`
	MaxChunkToken int       `json:"max_chunk_tokens"`
	OverlapTokens int       `json:"overlap_tokens"`
	ConvertedAt   time.Time `json:"converted_at"`
}
