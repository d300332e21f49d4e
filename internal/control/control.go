// Package control defines the user commands that drive the frame loop.
package control

// Command is a user request sampled once per loop iteration.
type Command int

const (
	// None means no recognised input this iteration.
	None Command = iota
	// Quit ends the session.
	Quit
	// Screenshot saves the current annotated frame.
	Screenshot
	// SaveFaces saves one crop per detected face.
	SaveFaces
)

// Key bindings for the preview window.
const (
	KeyQuit       = 'q'
	KeyScreenshot = 's'
	KeySaveFaces  = 'f'
)

// Help is printed at startup.
const Help = "press 'q' to quit, 's' to save screenshot, 'f' to save detected faces"

// FromKey maps a raw key code from the display to a Command.
// Only the low byte is considered, so modifier bits reported by some
// window backends are ignored. Negative codes mean no key was pressed.
func FromKey(key int) Command {
	if key < 0 {
		return None
	}

	switch key & 0xFF {
	case KeyQuit:
		return Quit
	case KeyScreenshot:
		return Screenshot
	case KeySaveFaces:
		return SaveFaces
	default:
		return None
	}
}

func (c Command) String() string {
	switch c {
	case Quit:
		return "quit"
	case Screenshot:
		return "screenshot"
	case SaveFaces:
		return "save-faces"
	default:
		return "none"
	}
}
