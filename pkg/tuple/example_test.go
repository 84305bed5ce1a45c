package tuple_test

import (
	"fmt"
	"log"

	"github.com/ssargent/tuplekv/pkg/tuple"
)

// ExampleTuple_Encode shows the bytes produced for a small key.
func ExampleTuple_Encode() {
	key := tuple.New(tuple.Text("users"), tuple.Int(1451))

	fmt.Printf("% x\n", key.Encode())

	// Output:
	// 02 75 73 65 72 73 00 16 05 ab
}

// ExampleDecode decodes an encoded tuple back into elements.
func ExampleDecode() {
	t, err := tuple.Decode([]byte{0x11, 0xab, 0x4b, 0x93, 0x27})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(t)
	fmt.Println(t.Len())

	// Output:
	// (-5551212, true)
	// 2
}

// ExampleTuple_Range builds the scan bounds for every key below a prefix.
func ExampleTuple_Range() {
	begin, end := tuple.New(tuple.Text("a")).Range()

	fmt.Printf("% x\n", begin)
	fmt.Printf("% x\n", end)

	// Output:
	// 02 61 00 00
	// 02 61 00 ff
}

// ExampleReadInt reads an integer element into a narrower type.
func ExampleReadInt() {
	enc := tuple.New(tuple.Int(1451)).Encode()

	v, next, err := tuple.ReadInt[uint16](enc, 0)
	fmt.Println(v, next, err)

	_, _, err = tuple.ReadInt[int8](enc, 0)
	fmt.Println(err)

	// Output:
	// 1451 3 <nil>
	// tuple: integer overflow at offset 0: 2 payload bytes into 1-byte int8
}
