package main

import (
	"fmt"

	"github.com/reactorhq/reactor"
)

func main() {
	a := reactor.NewBox(1)
	b := reactor.NewBox(2)

	sum := reactor.NewComputed(func() int {
		result := a.Get() + b.Get()
		fmt.Println("  [computed] sum:", result)
		return result
	})

	dispose := reactor.Autorun(func() {
		v, _ := sum.Get()
		fmt.Println("  [autorun] sum is:", v)
	})
	defer dispose.Dispose()

	fmt.Println("\nupdating both a and b in one action...")
	reactor.RunInAction("bump", func() {
		a.Set(10)
		b.Set(20)
	})

	fmt.Println("\nsum recomputes once per action, not once per write")
}
