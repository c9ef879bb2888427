/*
 * @module service/voice/voice_service_test
 * @description 语音合成服务单元测试（校验与配置报告，不触达真实供应商）
 * @architecture 测试层
 * @documentReference dev_docs/test_plan.md
 * @stateFlow 构造请求 -> 断言校验错误或配置报告
 * @rules 覆盖文本长度校验、供应商分发、密钥缺失、配置可用性
 * @dependencies testing, stretchr/testify, testutil
 */

package voice

import (
	"context"
	"os"
	"strings"
	"testing"

	"kpihub-service/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, func()) {
	t.Helper()
	tdb := testutil.NewTestDB()
	return NewService(tdb.DB), tdb.Close
}

func unsetProviderKeys(t *testing.T) {
	t.Helper()
	for _, key := range []string{"ELEVENLABS_API_KEY", "SARVAM_API_KEY"} {
		old := os.Getenv(key)
		os.Unsetenv(key)
		k, v := key, old
		t.Cleanup(func() {
			if v != "" {
				os.Setenv(k, v)
			}
		})
	}
}

func TestSynthesizeRejectsInvalidText(t *testing.T) {
	unsetProviderKeys(t)
	svc, cleanup := newTestService(t)
	defer cleanup()

	_, err := svc.Synthesize(context.Background(), "user-001", &SynthesizeRequest{
		Text:     "",
		Provider: ProviderElevenLabs,
	})
	assert.ErrorIs(t, err, ErrTextInvalid)

	_, err = svc.Synthesize(context.Background(), "user-001", &SynthesizeRequest{
		Text:     strings.Repeat("喂", 1001),
		Provider: ProviderElevenLabs,
	})
	assert.ErrorIs(t, err, ErrTextInvalid)
}

// 恰好1000字符（按rune计）仍然合法，只会因密钥未配置被拒
func TestSynthesizeTextLengthBoundary(t *testing.T) {
	unsetProviderKeys(t)
	svc, cleanup := newTestService(t)
	defer cleanup()

	_, err := svc.Synthesize(context.Background(), "user-001", &SynthesizeRequest{
		Text:     strings.Repeat("喂", 1000),
		Provider: ProviderElevenLabs,
	})
	assert.ErrorIs(t, err, ErrProviderNotConfigured)
}

func TestSynthesizeRejectsUnknownProvider(t *testing.T) {
	unsetProviderKeys(t)
	svc, cleanup := newTestService(t)
	defer cleanup()

	_, err := svc.Synthesize(context.Background(), "user-001", &SynthesizeRequest{
		Text:     "你好",
		Provider: "azure",
	})
	assert.ErrorIs(t, err, ErrInvalidProvider)
}

func TestSynthesizeRequiresProviderKey(t *testing.T) {
	unsetProviderKeys(t)
	svc, cleanup := newTestService(t)
	defer cleanup()

	for _, provider := range []string{ProviderElevenLabs, ProviderSarvam} {
		_, err := svc.Synthesize(context.Background(), "user-001", &SynthesizeRequest{
			Text:     "hello",
			Provider: provider,
		})
		assert.ErrorIs(t, err, ErrProviderNotConfigured, "供应商 %s", provider)
	}
}

func TestGetConfigReportsAvailability(t *testing.T) {
	unsetProviderKeys(t)
	os.Setenv("ELEVENLABS_API_KEY", "test-key")
	defer os.Unsetenv("ELEVENLABS_API_KEY")

	svc, cleanup := newTestService(t)
	defer cleanup()

	config := svc.GetConfig()
	assert.True(t, config.ElevenLabs.Available)
	require.NotNil(t, config.ElevenLabs.KeySource)
	assert.Equal(t, "centralized", *config.ElevenLabs.KeySource)

	assert.False(t, config.Sarvam.Available)
	assert.Nil(t, config.Sarvam.KeySource)
}

// 配置了密钥的供应商会预先算好bcrypt指纹
func TestKeyFingerprintComputed(t *testing.T) {
	unsetProviderKeys(t)
	os.Setenv("SARVAM_API_KEY", "sarvam-secret")
	defer os.Unsetenv("SARVAM_API_KEY")

	svc, cleanup := newTestService(t)
	defer cleanup()

	assert.NotEmpty(t, svc.fingerprints[ProviderSarvam])
	assert.NotContains(t, svc.fingerprints[ProviderSarvam], "sarvam-secret")
	_, ok := svc.fingerprints[ProviderElevenLabs]
	assert.False(t, ok)
}
