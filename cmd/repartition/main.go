// Command repartition drives the mesh repartitioning engine from the
// command line: it decodes an options file (spec section 6.2), reads a
// Blueprint-style mesh tree, runs the C1-C7 pipeline via the partitioner
// package, and writes the resulting domains back out.
package main

func main() {
	Execute()
}
