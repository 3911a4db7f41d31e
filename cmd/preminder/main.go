// Command preminder tracks user-defined events of interest and emails owners
// when new, future-dated information about them appears on the web.
package main

func main() {
	Execute()
}
