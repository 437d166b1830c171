// The main package for the kanka-search executable.
package main

import (
	"github.com/JakeFAU/kanka-search/cmd"
)

func main() {
	cmd.Execute()
}
