// The main package for the jobharvester executable.
package main

import (
	"github.com/jobharvest/jobharvester/cmd"
)

func main() {
	cmd.Execute()
}
