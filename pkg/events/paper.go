package events

import (
	"encoding/json"
)

// Author is one entry of a paper's author list.
type Author struct {
	Name        string `json:"name"`
	Affiliation string `json:"affiliation,omitempty"`
}

// Paper is the paper record carried by result/paper events and returned by
// the REST endpoints. Fields the client does not model are kept in Extra.
type Paper struct {
	ID                  int64    `json:"id,omitempty"`
	ArxivID             string   `json:"arxiv_id"`
	Title               string   `json:"title"`
	Authors             []Author `json:"authors,omitempty"`
	Abstract            string   `json:"abstract,omitempty"`
	Categories          string   `json:"categories,omitempty"`
	PrimaryCategory     string   `json:"primary_category,omitempty"`
	Published           string   `json:"published,omitempty"`
	Updated             string   `json:"updated,omitempty"`
	PDFURL              string   `json:"pdf_url,omitempty"`
	DOI                 string   `json:"doi,omitempty"`
	JournalRef          string   `json:"journal_ref,omitempty"`
	Comment             string   `json:"comment,omitempty"`
	RelevanceScore      float64  `json:"relevance_score,omitempty"`
	Keywords            []string `json:"keywords,omitempty"`
	Summarized          bool     `json:"summarized,omitempty"`
	Summary             string   `json:"summary,omitempty"`
	FigureURL           string   `json:"figure_url,omitempty"`
	KeyFindings         []string `json:"key_findings,omitempty"`
	CategoryExplanation string   `json:"category_explanation,omitempty"`
	SummaryText         string   `json:"summary_text,omitempty"`
	TitleTranslation    string   `json:"title_translation,omitempty"`
	AbstractTranslation string   `json:"abstract_translation,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var paperKnownFields = map[string]struct{}{
	"id": {}, "arxiv_id": {}, "title": {}, "authors": {}, "abstract": {},
	"categories": {}, "primary_category": {}, "published": {}, "updated": {},
	"pdf_url": {}, "doi": {}, "journal_ref": {}, "comment": {},
	"relevance_score": {}, "keywords": {}, "summarized": {}, "summary": {},
	"figure_url": {}, "key_findings": {}, "category_explanation": {},
	"summary_text": {}, "title_translation": {}, "abstract_translation": {},
}

// paperAlias drops the methods of Paper so the custom codecs do not recurse.
type paperAlias Paper

func (p *Paper) UnmarshalJSON(b []byte) error {
	var a paperAlias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(b, &all); err != nil {
		return err
	}
	for k, v := range all {
		if _, ok := paperKnownFields[k]; ok {
			continue
		}
		if a.Extra == nil {
			a.Extra = map[string]json.RawMessage{}
		}
		a.Extra[k] = v
	}
	*p = Paper(a)
	return nil
}

func (p Paper) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(paperAlias(p))
	if err != nil || len(p.Extra) == 0 {
		return b, err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(b, &all); err != nil {
		return nil, err
	}
	for k, v := range p.Extra {
		if _, ok := all[k]; !ok {
			all[k] = v
		}
	}
	return json.Marshal(all)
}

// AuthorNames returns the author names in order.
func (p Paper) AuthorNames() []string {
	out := make([]string, 0, len(p.Authors))
	for _, a := range p.Authors {
		out = append(out, a.Name)
	}
	return out
}
