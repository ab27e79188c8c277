package keys

import (
	"strings"
	"testing"
)

func TestGenerateKeyMaterialShape(t *testing.T) {
	material, errGenerate := GenerateKeyMaterial()
	if errGenerate != nil {
		t.Fatalf("generate: %v", errGenerate)
	}
	if !strings.HasPrefix(material.KeyID, "ck_") {
		t.Fatalf("expected key id prefixed with ck_, got %q", material.KeyID)
	}
	if len(material.KeyID) != len("ck_")+keyIDBytes*2 {
		t.Fatalf("expected key id length %d, got %d", len("ck_")+keyIDBytes*2, len(material.KeyID))
	}
	if !strings.HasPrefix(material.Secret, "sk_") {
		t.Fatalf("expected secret prefixed with sk_, got %q", material.Secret)
	}
	if len(material.Secret) != len("sk_")+secretBytes*2 {
		t.Fatalf("expected secret length %d, got %d", len("sk_")+secretBytes*2, len(material.Secret))
	}
	if material.KeyHash != HashSecret(material.Secret) {
		t.Fatalf("stored hash does not match the secret digest")
	}
	if len(material.KeyHash) != 64 {
		t.Fatalf("expected 64 hex chars of sha-256, got %d", len(material.KeyHash))
	}
}

func TestGenerateKeyMaterialUnique(t *testing.T) {
	seenIDs := map[string]struct{}{}
	seenSecrets := map[string]struct{}{}
	for i := 0; i < 64; i++ {
		material, errGenerate := GenerateKeyMaterial()
		if errGenerate != nil {
			t.Fatalf("generate: %v", errGenerate)
		}
		if _, ok := seenIDs[material.KeyID]; ok {
			t.Fatalf("duplicate key id %q", material.KeyID)
		}
		if _, ok := seenSecrets[material.Secret]; ok {
			t.Fatalf("duplicate secret")
		}
		seenIDs[material.KeyID] = struct{}{}
		seenSecrets[material.Secret] = struct{}{}
	}
}

func TestHashSecretDeterministic(t *testing.T) {
	first := HashSecret("sk_deadbeef")
	second := HashSecret("sk_deadbeef")
	if first != second {
		t.Fatalf("expected identical digests, got %q and %q", first, second)
	}
	if first == HashSecret("sk_deadbeee") {
		t.Fatalf("different secrets produced the same digest")
	}
}
