package memfs

// Operator defines the namespace operations that front-ends (shell, http api)
// dispatch to. One external verb maps to exactly one Operator call.
type Operator interface {
	Mkdir(name string) error
	Cd(path string) error
	Ls(path string) ([]string, error)
	Grep(name, pattern string) ([]string, error)
	Cat(name string) (string, error)
	Touch(name string) error
	Echo(text, name string, deleteContent bool) error
	Mv(source, destination string) error
	Cp(source, destination string) error
	Rm(path string) error
	Pwd() string
	Find(pattern string) ([]string, error)
}
