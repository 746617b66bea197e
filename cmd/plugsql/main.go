// plugsql is the operator CLI for the plugin bridge: it registers WASM
// plugins as SQL functions, inspects their contracts, manages their
// secrets and runs statements against the function catalog.
package main

func main() {
	Execute()
}
