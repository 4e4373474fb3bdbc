// Package jsonobj provides a defensive, read-only view over arbitrary JSON.
//
// API responses vary: fields go missing, change type between versions or come
// back as null. An Object lets callers read whatever they expect without
// checking for any of that first. Every reader is total: a missing field, a
// field of the wrong type, a null body or a body that is not JSON at all all
// degrade to the reader's default (or to "absent" for the Nullable variants).
//
// # Usage
//
//	obj := jsonobj.Parse(body)
//
//	id := obj.Int("id")                       // 0 when missing
//	name := obj.StringOr("name", "unnamed")   // "unnamed" when missing
//	if nick, ok := obj.NullableNotEmptyString("nick"); ok {
//		// nick is present and not ""
//	}
//
//	// Nested reads never fail either
//	city := obj.Object("address").String("city")
//
//	for _, item := range obj.Array("items") {
//		fmt.Println(item.Int("id"))
//	}
//
// Field identifiers are literal object keys. Reads against anything other
// than a JSON object (arrays, scalars, null) find no fields.
package jsonobj
