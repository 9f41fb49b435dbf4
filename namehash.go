package rewriter

// NameHash is a fingerprint of a tag name restricted to the character set
// [a-z0-9-], ASCII-uppercase folded to lowercase first. It packs each
// character into a 6-bit code (1..37, 0 reserved for "absent"), so two
// different names of representable length can never collide: the packing
// is a perfect hash over its domain, not a lossy digest. Names longer than
// maxNameHashLen, or containing a byte outside the character set, are
// outside that domain and must be compared byte-wise instead — HashName
// reports ok=false for them.
type NameHash uint64

// maxNameHashLen is the longest name the packing can represent: 10 six-bit
// codes fit in 60 of the 64 available bits. It comfortably covers every
// HTML5 element name (longer names such as "annotation-xml", a
// foreign-content name, are handled by byte comparison like any other
// out-of-domain name). Attribute names are never hashed.
const maxNameHashLen = 10

// charCode maps a single ASCII byte (after uppercase folding) to its 6-bit
// packing code, or 0 if the byte isn't in [a-z0-9-].
func charCode(b byte) uint64 {
	switch {
	case b >= 'A' && b <= 'Z':
		b += 'a' - 'A'
		fallthrough
	case b >= 'a' && b <= 'z':
		return uint64(b-'a') + 1 // 1..26
	case b >= '0' && b <= '9':
		return uint64(b-'0') + 27 // 27..36
	case b == '-':
		return 37
	default:
		return 0
	}
}

// HashName computes the NameHash of name, case-folding ASCII uppercase to
// lowercase as it goes. ok is false if name is empty, longer than
// maxNameHashLen, or contains a byte outside [a-zA-Z0-9-]; callers must
// fall back to a byte-wise name comparison in that case.
func HashName(name []byte) (hash NameHash, ok bool) {
	if len(name) == 0 || len(name) > maxNameHashLen {
		return 0, false
	}
	var h uint64
	for _, b := range name {
		code := charCode(b)
		if code == 0 {
			return 0, false
		}
		h = h<<6 | code
	}
	return NameHash(h), true
}

// nameHasher accumulates a NameHash incrementally as the tokenizer scans a
// tag name byte by byte, so it never has to buffer the name separately
// just to hash it afterward. finish reports ok=false once the name has
// stepped outside the hashable domain; feed keeps counting bytes (to track
// Range) but no longer packs them into the hash.
type nameHasher struct {
	h        uint64
	n        int // hash-eligible bytes packed so far
	total    int // total bytes fed, hashable or not
	overflow bool
}

func (a *nameHasher) reset() {
	a.h, a.n, a.total, a.overflow = 0, 0, 0, false
}

// feed consumes one more byte of the name. It always advances total (so
// callers can recover the name's length/end offset even once hashing has
// given up), but stops packing into the hash once the name leaves the
// hashable domain.
func (a *nameHasher) feed(b byte) {
	a.total++
	if a.overflow {
		return
	}
	code := charCode(b)
	if code == 0 || a.n >= maxNameHashLen {
		a.overflow = true
		return
	}
	a.h = a.h<<6 | code
	a.n++
}

func (a *nameHasher) finish() (NameHash, bool) {
	if a.overflow || a.n == 0 {
		return 0, false
	}
	return NameHash(a.h), true
}
