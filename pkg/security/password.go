package security

import (
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"math/big"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
)

const (
	DefaultIterations = 600000
	saltChars         = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	saltLength        = 16
	scryptKeyLen      = 64
)

var (
	ErrHashingFailed     = errors.New("password hashing failed")
	ErrMismatch          = errors.New("password does not match")
	ErrUnsupportedFormat = errors.New("unsupported password hash format")
)

// PasswordHasher provides interface for password operations
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hashedPassword, password string) error
}

// hasher reads and writes composite hashes of the form method$salt$hexdigest, where method is
// pbkdf2:<digest>:<iterations> or scrypt:<n>:<r>:<p>. bcrypt strings are accepted for reading.
type hasher struct {
	iterations int
}

// NewHasher creates a hasher writing pbkdf2:sha256 hashes with the given iteration count.
func NewHasher(iterations int) PasswordHasher {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	return &hasher{iterations: iterations}
}

func (h *hasher) Hash(password string) (string, error) {
	salt, err := genSalt(saltLength)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrHashingFailed, err)
	}
	key := pbkdf2.Key([]byte(password), []byte(salt), h.iterations, sha256.Size, sha256.New)
	return fmt.Sprintf("pbkdf2:sha256:%d$%s$%s", h.iterations, salt, hex.EncodeToString(key)), nil
}

func (h *hasher) Compare(hashedPassword, password string) error {
	if strings.HasPrefix(hashedPassword, "$2") {
		err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
		switch {
		case err == nil:
			return nil
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return ErrMismatch
		default:
			return fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
		}
	}

	parts := strings.SplitN(hashedPassword, "$", 3)
	if len(parts) != 3 {
		return ErrUnsupportedFormat
	}
	method, salt, digest := parts[0], parts[1], parts[2]

	expected, err := hex.DecodeString(digest)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	derived, err := derive(method, salt, password)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare(derived, expected) != 1 {
		return ErrMismatch
	}
	return nil
}

func derive(method, salt, password string) ([]byte, error) {
	fields := strings.Split(method, ":")

	switch fields[0] {
	case "pbkdf2":
		if len(fields) != 3 {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, method)
		}
		newHash, size, err := digestFor(fields[1])
		if err != nil {
			return nil, err
		}
		iterations, err := strconv.Atoi(fields[2])
		if err != nil || iterations < 1 {
			return nil, fmt.Errorf("%w: bad iteration count %q", ErrUnsupportedFormat, fields[2])
		}
		return pbkdf2.Key([]byte(password), []byte(salt), iterations, size, newHash), nil

	case "scrypt":
		n, r, p := 32768, 8, 1
		if len(fields) == 4 {
			var err error
			if n, err = strconv.Atoi(fields[1]); err != nil {
				return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, method)
			}
			if r, err = strconv.Atoi(fields[2]); err != nil {
				return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, method)
			}
			if p, err = strconv.Atoi(fields[3]); err != nil {
				return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, method)
			}
		} else if len(fields) != 1 {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, method)
		}
		key, err := scrypt.Key([]byte(password), []byte(salt), n, r, p, scryptKeyLen)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
		}
		return key, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, method)
}

func digestFor(name string) (func() hash.Hash, int, error) {
	switch name {
	case "sha1":
		return sha1.New, sha1.Size, nil
	case "sha256":
		return sha256.New, sha256.Size, nil
	case "sha512":
		return sha512.New, sha512.Size, nil
	}
	return nil, 0, fmt.Errorf("%w: digest %q", ErrUnsupportedFormat, name)
}

func genSalt(length int) (string, error) {
	max := big.NewInt(int64(len(saltChars)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = saltChars[n.Int64()]
	}
	return string(b), nil
}
