//go:build amd64 || (arm64 && cgo)

package redirect_test

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/pboyd/redirect"
)

//go:noinline
func greeting() string {
	return "hello"
}

//go:noinline
func farewell() string {
	return "goodbye"
}

//go:noinline
func welcome(name string) string {
	return greeting() + ", " + name
}

//go:noinline
func introduce(name string) string {
	return greeting() + ", I'm " + name
}

//go:noinline
func roll() int {
	return rand.IntN(6) + 1
}

func loadedRoll() int {
	return 6
}

func Example() {
	// Only welcome is affected.
	err := redirect.Scoped(welcome, greeting, farewell)
	if err != nil {
		panic(err)
	}

	// Every call to roll is affected.
	err = redirect.Global(roll, loadedRoll)
	if err != nil {
		panic(err)
	}
	fmt.Println(redirect.Count())

	err = redirect.Apply(context.Background())
	if err != nil {
		panic(err)
	}

	fmt.Println(welcome("Ada"))
	fmt.Println(introduce("Ada"))
	fmt.Println(roll(), roll())
	// Output:
	// 2
	// goodbye, Ada
	// hello, I'm Ada
	// 6 6
}
