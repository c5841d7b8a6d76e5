// mqttsub subscribes to the topics listed in its configuration and prints every
// message it receives.
package main

import (
	"fmt"
	"os"

	"github.com/gojek/mqttsub"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(mqttsub.ExitCode(err))
	}
}
