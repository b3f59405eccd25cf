package main

import anytron "github.com/jaym/anytron/apps/anytron/cmd"

func main() {
	anytron.Execute()
}
