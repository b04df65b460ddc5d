// Command eventroster serves the roster API and runs roster maintenance tasks.
package main

import "os"

func main() {
	os.Exit(Run())
}
