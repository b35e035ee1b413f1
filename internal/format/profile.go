// Package format converts assistant markdown into channel-safe message
// chunks: markup-subset translation, length enforcement, and splitting
// that never breaks a semantic unit. Everything here is pure; identical
// input always yields identical output.
package format

// Markup enumerates the constructs a channel can represent natively.
type Markup uint16

const (
	MarkupBold Markup = 1 << iota
	MarkupItalic
	MarkupStrikethrough
	MarkupMonospace
	MarkupHeaders
	MarkupLists
	MarkupTables
	MarkupLinks
	MarkupCodeFences
)

// Profile describes one outbound channel. Profiles are configuration,
// built once at startup and treated as immutable.
type Profile struct {
	Name       string
	ChunkLimit int
	Allowed    Markup

	// Passthrough channels render markdown themselves (web client,
	// terminal renderer); translation is skipped and only the length
	// policy applies.
	Passthrough bool
}

// Allows reports whether the channel supports the given construct.
func (p Profile) Allows(m Markup) bool {
	return p.Allowed&m == m
}

// WhatsApp returns the profile for Twilio WhatsApp delivery: the WhatsApp
// markup subset (*bold*, _italic_, ~strike~, `mono`, ``` fences) and the
// Twilio per-message budget.
func WhatsApp(chunkLimit int) Profile {
	return Profile{
		Name:       "whatsapp",
		ChunkLimit: chunkLimit,
		Allowed: MarkupBold | MarkupItalic | MarkupStrikethrough |
			MarkupMonospace | MarkupCodeFences,
	}
}

// Web returns the profile for the web chat and CLI channels, which render
// full markdown client-side.
func Web(chunkLimit int) Profile {
	return Profile{
		Name:       "web",
		ChunkLimit: chunkLimit,
		Allowed: MarkupBold | MarkupItalic | MarkupStrikethrough |
			MarkupMonospace | MarkupHeaders | MarkupLists | MarkupTables |
			MarkupLinks | MarkupCodeFences,
		Passthrough: true,
	}
}

// Format translates text for the channel and splits it into ordered
// chunks, each within the profile's chunk limit and balanced with respect
// to markup spans.
func Format(text string, p Profile) []string {
	if !p.Passthrough {
		text = Translate(text, p)
	}
	return split(text, p.ChunkLimit)
}
