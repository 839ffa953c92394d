// Command pokedex searches the Pokédex API from the command line or serves
// the search as an HTTP proxy.
package main

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	setVersion(version, buildTime)
	execute()
}
