package main

// TODO:
// - Profiling (Benchmarking) !! https://blog.golang.org/pprof
// - CSRF !!!
func main() {
	startWithDig()
}
