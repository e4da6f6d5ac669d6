package ports

// WorkspacePort owns the working directory shared by all publish runs.
type WorkspacePort interface {
	// Reset wipes the working directory and recreates it empty. It returns
	// the directory path even when the wipe was only partially successful.
	Reset() (string, error)
}
