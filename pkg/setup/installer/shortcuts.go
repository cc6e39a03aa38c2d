package installer

// shortcutSpec describes one shortcut to create, independent of the
// platform's launcher format.
type shortcutSpec struct {
	// Path is the full path of the shortcut file, extension included.
	Path string

	// Target is the absolute path of the executable the shortcut opens.
	Target string

	// WorkDir is the working directory the target starts in.
	WorkDir string

	// Name is the display name shown by the launcher.
	Name string

	// Icon is an absolute icon path, empty for the target's own icon.
	Icon string
}
