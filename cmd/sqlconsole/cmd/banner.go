package cmd

import (
	"fmt"
)

const banner = `
            _                           _
  ___  __ _| | ___ ___  _ __  ___  ___ | | ___
 / __|/ _` + "`" + ` | |/ __/ _ \| '_ \/ __|/ _ \| |/ _ \
 \__ \ (_| | | (_| (_) | | | \__ \ (_) | |  __/
 |___/\__, |_|\___\___/|_| |_|___/\___/|_|\___|
         |_|
`

func printBanner() {
	fmt.Printf("\x1b[34m%s\x1b[0m", banner)
	fmt.Printf("\x1b[32m  Browser SQL Console - Version %s\x1b[0m\n\n", Version)
}
