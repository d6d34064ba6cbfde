// Package status implements the ephemeral status-board engine: short-lived
// posts with optional images, toggled emoji reactions, threshold-based
// auto-hiding on abuse reports, reply aggregation, and expiry-driven cleanup.
// Persistence goes through the docstore/blobstore abstractions; this package
// owns the invariants.
package status

import "github.com/mhalesto/localloop/internal/docstore"

// Collection is the document collection holding status posts.
const Collection = "statuses"

// repliesCollection returns the sub-collection path for a status's replies.
func repliesCollection(statusID string) string {
	return Collection + "/" + statusID + "/replies"
}

// Author is a denormalized profile snapshot captured at creation time.
// It does not track later profile edits.
type Author struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
	Nickname    string `json:"nickname"`
	Email       string `json:"email"`
}

// Reaction is one emoji's reactor set. Count always equals len(Reactors);
// an emoji with no reactors is removed from the map, never kept at zero.
type Reaction struct {
	Reactors []string `json:"reactors"`
	Count    int      `json:"count"`
}

// Report is one user's abuse report. At most one per reporter uid.
type Report struct {
	Reason     string `json:"reason"`
	ReportedAt int64  `json:"reportedAt"`
}

// Status is an ephemeral post. All timestamps are epoch milliseconds.
type Status struct {
	ID                string              `json:"id"`
	Message           string              `json:"message"`
	ImageURL          string              `json:"imageUrl,omitempty"`
	ImageStoragePath  string              `json:"imageStoragePath,omitempty"`
	CreatedAt         int64               `json:"createdAt"`
	ExpiresAt         int64               `json:"expiresAt"`
	LastInteractionAt int64               `json:"lastInteractionAt"`
	Author            Author              `json:"author"`
	City              string              `json:"city,omitempty"`
	Province          string              `json:"province,omitempty"`
	Country           string              `json:"country,omitempty"`
	Reactions         map[string]Reaction `json:"reactions"`
	RepliesCount      int                 `json:"repliesCount"`
	Reports           map[string]Report   `json:"reports"`
	ReportCount       int                 `json:"reportCount"`
	IsHidden          bool                `json:"isHidden"`
}

// Reply is a lightweight child of a status. Immutable once created.
type Reply struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	CreatedAt int64  `json:"createdAt"`
	Author    Author `json:"author"`
}

func authorToDoc(a Author) map[string]any {
	return map[string]any{
		"uid":         a.UID,
		"displayName": a.DisplayName,
		"photoURL":    a.PhotoURL,
		"nickname":    a.Nickname,
		"email":       a.Email,
	}
}

func authorFromDoc(v any) Author {
	m, _ := v.(map[string]any)
	return Author{
		UID:         asString(m["uid"]),
		DisplayName: asString(m["displayName"]),
		PhotoURL:    asString(m["photoURL"]),
		Nickname:    asString(m["nickname"]),
		Email:       asString(m["email"]),
	}
}

func (s *Status) toDoc() map[string]any {
	doc := map[string]any{
		"id":                s.ID,
		"message":           s.Message,
		"createdAt":         s.CreatedAt,
		"expiresAt":         s.ExpiresAt,
		"lastInteractionAt": s.LastInteractionAt,
		"author":            authorToDoc(s.Author),
		"city":              s.City,
		"province":          s.Province,
		"country":           s.Country,
		"reactions":         reactionsToDoc(s.Reactions),
		"repliesCount":      s.RepliesCount,
		"reports":           reportsToDoc(s.Reports),
		"reportCount":       s.ReportCount,
		"isHidden":          s.IsHidden,
	}
	if s.ImageURL != "" {
		doc["imageUrl"] = s.ImageURL
		doc["imageStoragePath"] = s.ImageStoragePath
	}
	return doc
}

// statusFromDoc normalizes a raw stored document into the canonical shape,
// coercing timestamps and sanitizing the reaction and report maps.
func statusFromDoc(doc docstore.Document) Status {
	d := doc.Data
	s := Status{
		ID:                doc.ID,
		Message:           asString(d["message"]),
		ImageURL:          asString(d["imageUrl"]),
		ImageStoragePath:  asString(d["imageStoragePath"]),
		CreatedAt:         toEpochMillis(d["createdAt"]),
		ExpiresAt:         toEpochMillis(d["expiresAt"]),
		LastInteractionAt: toEpochMillis(d["lastInteractionAt"]),
		Author:            authorFromDoc(d["author"]),
		City:              asString(d["city"]),
		Province:          asString(d["province"]),
		Country:           asString(d["country"]),
		Reactions:         sanitizeReactions(d["reactions"]),
		RepliesCount:      asInt(d["repliesCount"]),
		Reports:           sanitizeReports(d["reports"]),
		IsHidden:          asBool(d["isHidden"]),
	}
	if id := asString(d["id"]); id != "" {
		s.ID = id
	}
	s.ReportCount = len(s.Reports)
	return s
}

func (r *Reply) toDoc() map[string]any {
	return map[string]any{
		"id":        r.ID,
		"message":   r.Message,
		"createdAt": r.CreatedAt,
		"author":    authorToDoc(r.Author),
	}
}

func replyFromDoc(doc docstore.Document) Reply {
	d := doc.Data
	r := Reply{
		ID:        doc.ID,
		Message:   asString(d["message"]),
		CreatedAt: toEpochMillis(d["createdAt"]),
		Author:    authorFromDoc(d["author"]),
	}
	if id := asString(d["id"]); id != "" {
		r.ID = id
	}
	return r
}
