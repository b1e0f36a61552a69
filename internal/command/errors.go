package command

import "fmt"

type configError struct {
	folder string
	reason any
}

func (e configError) Error() string {
	return fmt.Sprintf("config %s: %v", e.folder, e.reason)
}
