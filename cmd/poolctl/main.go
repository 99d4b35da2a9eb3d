// Command poolctl drives an arena from the command line: it runs scripted
// allocation sequences and prints the resulting block chain and usage.
package main

func main() {
	execute()
}
