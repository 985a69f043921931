package psapi

import "encoding/json"

// Layer type tag carrying translatable text.
const LayerTypeText = "textLayer"

// Vendor-reported statuses for asynchronous job outputs.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusRunning   = "running"
	StatusPending   = "pending"
)

// Content types the document service expects. The edit endpoint's output type
// omits the image/ prefix; that is the wire format the vendor accepts.
const (
	ContentTypePhotoshop  = "image/vnd.adobe.photoshop"
	editOutputContentType = "vnd.adobe.photoshop"
)

// Layer is one node in a document's layer tree. Group layers carry children;
// text layers carry text. A layer with children is a container and its own
// text field is not meaningful.
type Layer struct {
	Type     string       `json:"type"`
	Name     string       `json:"name"`
	Text     *TextContent `json:"text,omitempty"`
	Children []Layer      `json:"children,omitempty"`
}

type TextContent struct {
	Content string `json:"content"`
}

// TextEdit is one replacement submitted to the edit endpoint. The vendor
// matches edits to layers by name.
type TextEdit struct {
	Name string      `json:"name"`
	Text TextContent `json:"text"`
}

// JobStatus is the vendor's response body for both immediate results and
// poll ticks: either a handle to poll (Links) or outputs with a status.
type JobStatus struct {
	Outputs []Output `json:"outputs"`
	Links   *Links   `json:"_links,omitempty"`
}

type Output struct {
	Status string          `json:"status"`
	Layers []Layer         `json:"layers,omitempty"`
	Errors json.RawMessage `json:"errors,omitempty"`
}

type Links struct {
	Self Link `json:"self"`
}

type Link struct {
	Href string `json:"href"`
}

// PollHandle returns the polling URL embedded in a response, or "" when the
// vendor answered synchronously.
func (s *JobStatus) PollHandle() string {
	if s == nil || s.Links == nil {
		return ""
	}
	return s.Links.Self.Href
}

// --- request bodies ---

type jobInput struct {
	Href    string `json:"href"`
	Storage string `json:"storage"`
	Type    string `json:"type,omitempty"`
}

type manifestRequest struct {
	Inputs []jobInput `json:"inputs"`
}

type editOptions struct {
	Layers []TextEdit `json:"layers"`
}

type editRequest struct {
	Inputs  []jobInput  `json:"inputs"`
	Options editOptions `json:"options"`
	Outputs []jobInput  `json:"outputs"`
}
