package iocli

//go:generate moq -out io_mock.go . IO

// IO abstracts terminal interaction so commands can run against a real
// terminal or a scripted harness in tests.
type IO interface {
	Println(a ...any)
	Printf(format string, a ...any)
	ReadInput(prompt string) (string, error)
	ReadPassword(prompt string) (string, error)
	Write(p []byte) (n int, err error)
}
