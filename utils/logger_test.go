/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package utils

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNewLoggerIsRegisteredOnce(t *testing.T) {
	a := NewLogger("UTILS_TEST")
	b := NewLogger("UTILS_TEST")
	assert.Same(t, a, b)

	assert.True(t, SetLoggerLevel("UTILS_TEST", "error"))
	assert.Equal(t, logrus.ErrorLevel, a.GetLevel())
	assert.False(t, SetLoggerLevel("NOT_REGISTERED", "debug"))
}

func TestLoggerCarriesName(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger("UTILS_NAMED")
	l.SetOutput(&buf)
	l.SetLevel(logrus.InfoLevel)
	l.Info("hello")
	assert.Contains(t, buf.String(), "logger=UTILS_NAMED")
	assert.Contains(t, buf.String(), "hello")
}

func TestEnvDefaults(t *testing.T) {
	t.Setenv("UTILS_BOOL", "true")
	t.Setenv("UTILS_BAD_BOOL", "maybe")
	assert.True(t, EnvDefaultBool("UTILS_BOOL", false))
	assert.True(t, EnvDefaultBool("UTILS_BAD_BOOL", true))
	assert.Equal(t, "x", EnvDefaultString("UTILS_UNSET_KEY", "x"))
	assert.Equal(t, logrus.WarnLevel, ParseLogLevel("WARNING"))
}
