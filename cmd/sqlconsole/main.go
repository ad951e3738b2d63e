package main

import "github.com/jmcleod/sqlconsole/cmd/sqlconsole/cmd"

func main() {
	cmd.Execute()
}
