package types

// Model is one entry of the permitted model registry.
type Model struct {
	// Stable identifier passed to the generation tool.
	// example: gemini-2.5-flash-lite
	ID string `json:"id" example:"gemini-2.5-flash-lite"`
	// Human-friendly name.
	// example: Gemini 2.5 Flash Lite
	Name string `json:"name" example:"Gemini 2.5 Flash Lite"`
	// True when this is the server default used for requests that omit a model.
	// example: true
	Default bool `json:"default,omitempty" example:"true"`
}
