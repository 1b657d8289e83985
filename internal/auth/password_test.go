package auth

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	digest, err := HashPassword("pw123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if digest == "pw123" {
		t.Fatal("digest must not equal plaintext")
	}
	if !CheckPassword("pw123", digest) {
		t.Fatal("correct password rejected")
	}
	if CheckPassword("wrong", digest) {
		t.Fatal("wrong password accepted")
	}
}

func TestHashPasswordSaltsPerCall(t *testing.T) {
	first, err := HashPassword("same input")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	second, err := HashPassword("same input")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if first == second {
		t.Fatal("two hashes of the same plaintext must differ")
	}
	if !CheckPassword("same input", first) || !CheckPassword("same input", second) {
		t.Fatal("both digests must verify")
	}
}

func TestCheckPasswordMalformedDigest(t *testing.T) {
	if CheckPassword("anything", "not-a-bcrypt-digest") {
		t.Fatal("malformed digest must not verify")
	}
	if CheckPassword("anything", "") {
		t.Fatal("empty digest must not verify")
	}
}
