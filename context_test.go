/*
 *
 * Copyright 2020-present Arpabet, Inc.
 *
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
 *
 */

package beans_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"sync"
	"testing"

	"github.com/consensusdb/beans"
	"github.com/consensusdb/beans/convert"
	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

/**
@author Alex Shvid
*/

type Storage interface {
	Load(key string) string
	Store(key, value string)
}

type ConfigService interface {
	GetConfig(key string) string
	SetConfig(key, value string)
}

type UserService interface {
	GetUser(user string) string
	SaveUser(user, details string)
}

type Auditor interface {
	Audit(event string)
}

var (
	StorageClass       = reflect.TypeOf((*Storage)(nil)).Elem()
	ConfigServiceClass = reflect.TypeOf((*ConfigService)(nil)).Elem()
	UserServiceClass   = reflect.TypeOf((*UserService)(nil)).Elem()
	AuditorClass       = reflect.TypeOf((*Auditor)(nil)).Elem()

	storageImplClass       = reflect.TypeOf((*storageImpl)(nil))
	configServiceImplClass = reflect.TypeOf((*configServiceImpl)(nil))
	userServiceImplClass   = reflect.TypeOf((*userServiceImpl)(nil))
)

type storageImpl struct {
	mu   sync.Mutex
	data map[string]string
}

func (t *storageImpl) Load(key string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.data[key]
}

func (t *storageImpl) Store(key, value string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.data == nil {
		t.data = make(map[string]string)
	}
	t.data[key] = value
}

type configServiceImpl struct {
	Storage `bean:"storage"`
}

func (t *configServiceImpl) GetConfig(key string) string {
	return t.Load("config:" + key)
}

func (t *configServiceImpl) SetConfig(key, value string) {
	t.Store("config:"+key, value)
}

type userServiceImpl struct {
	Storage       `bean:"storage"`
	ConfigService `bean:"configService"`
}

func (t *userServiceImpl) GetUser(user string) string {
	return t.Load("user:" + user)
}

func (t *userServiceImpl) SaveUser(user, details string) {
	if t.allowWrites() {
		t.Store("user:"+user, details)
	}
}

func (t *userServiceImpl) allowWrites() bool {
	b, err := strconv.ParseBool(t.GetConfig("allowWrites"))
	if err != nil {
		return false
	}
	return b
}

func newContext(t *testing.T, opts ...beans.Option) (beans.Context, error) {
	return beans.Create(append([]beans.Option{beans.WithLogger(zaptest.NewLogger(t))}, opts...)...)
}

func services() []beans.Option {
	return []beans.Option{
		beans.WithDefinition("storage", beans.NewDefinition(storageImplClass)),
		beans.WithDefinition("configService", beans.NewDefinition(configServiceImplClass,
			prop("storage", beans.Ref("storage")))),
		beans.WithDefinition("userService", beans.NewDefinition(userServiceImplClass,
			prop("storage", beans.Ref("storage")),
			prop("configService", beans.Ref("configService")))),
	}
}

func TestCreateEmpty(t *testing.T) {

	ctx, err := newContext(t)
	require.Nil(t, err)
	require.NotNil(t, ctx)
	require.Equal(t, 0, len(ctx.DefinitionNames()))
	require.Nil(t, ctx.Parent())
	require.Nil(t, ctx.Close())

}

func TestCreate(t *testing.T) {

	ctx, err := newContext(t, services()...)
	require.Nil(t, err)
	defer ctx.Close()

	require.Equal(t, []string{"storage", "configService", "userService"}, ctx.DefinitionNames())

	obj, err := ctx.Lookup("storage")
	require.Nil(t, err)
	storageInstance := obj.(*storageImpl)
	require.Equal(t, storageInstance, ctx.MustBean(StorageClass))

	obj, err = ctx.Lookup("configService")
	require.Nil(t, err)
	configServiceInstance := obj.(*configServiceImpl)
	require.Same(t, storageInstance, configServiceInstance.Storage)
	require.Equal(t, configServiceInstance, ctx.MustBean(ConfigServiceClass))

	obj, err = ctx.Lookup("userService")
	require.Nil(t, err)
	userServiceInstance := obj.(*userServiceImpl)
	require.Same(t, storageInstance, userServiceInstance.Storage)
	require.Same(t, configServiceInstance, userServiceInstance.ConfigService)
	require.Equal(t, userServiceInstance, ctx.MustBean(UserServiceClass))

	singleton, err := ctx.IsSingleton("userService")
	require.Nil(t, err)
	require.True(t, singleton)

	all, err := ctx.BeansOfType(StorageClass)
	require.Nil(t, err)
	require.Equal(t, 3, len(all))

}

type requestScope struct {
	requestParams string
	UserService   `inject`
	Store         *storageImpl `inject:"storage"`
}

func (t *requestScope) routeAddUser(user string) {
	t.UserService.SaveUser(user, t.requestParams)
}

func TestRequest(t *testing.T) {

	ctx, err := newContext(t, services()...)
	require.Nil(t, err)
	defer ctx.Close()

	controller := &requestScope{
		requestParams: "username=Alex",
	}
	require.Nil(t, ctx.Inject(controller))
	require.NotNil(t, controller.UserService)
	require.Equal(t, ctx.MustBean(StorageClass), controller.Store)

	controller.routeAddUser("alex")
	require.Equal(t, "", controller.Store.Load("user:alex"))

	ctx.MustBean(ConfigServiceClass).(ConfigService).SetConfig("allowWrites", "true")
	controller.routeAddUser("alex")
	require.Equal(t, "username=Alex", controller.Store.Load("user:alex"))

	require.NotNil(t, ctx.Inject(requestScope{}))
	require.NotNil(t, ctx.Inject(nil))

}

type auditScope struct {
	Auditor `inject`
}

func TestMissingInterface(t *testing.T) {

	ctx, err := newContext(t, services()...)
	require.Nil(t, err)
	defer ctx.Close()

	_, ok := ctx.Bean(AuditorClass)
	require.False(t, ok)
	require.Panics(t, func() {
		ctx.MustBean(AuditorClass)
	})
	require.NotNil(t, ctx.Inject(&auditScope{}))

	_, err = ctx.Lookup("auditor")
	require.True(t, errors.Is(err, beans.ErrNoSuchBean))

}

func TestMissingReference(t *testing.T) {

	_, err := newContext(t,
		beans.WithDefinition("storage", beans.NewDefinition(storageImplClass)),
		beans.WithDefinition("userService", beans.NewDefinition(userServiceImplClass,
			prop("storage", beans.Ref("storage")),
			prop("configService", beans.Ref("configService")))),
	)
	require.True(t, errors.Is(err, beans.ErrUnresolvedReference))
	require.True(t, errors.Is(err, beans.ErrNoSuchBean))

}

type journal struct {
	mu     sync.Mutex
	events []string
}

func (t *journal) add(event string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, event)
}

func (t *journal) list() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.events...)
}

type closer struct {
	Journal *journal `bean:"journal"`
	name    string
}

func (t *closer) SetBeanName(name string) {
	t.name = name
}

func (t *closer) Destroy() error {
	t.Journal.add("destroy " + t.name)
	return nil
}

var closerClass = reflect.TypeOf((*closer)(nil))

func TestClose(t *testing.T) {

	j := new(journal)
	ctx, err := newContext(t,
		beans.WithDefinition("first", beans.NewDefinition(closerClass, prop("journal", beans.Ref("journal")))),
		beans.WithDefinition("second", beans.NewDefinition(closerClass, prop("journal", beans.Ref("journal")))),
		beans.WithSingleton("journal", j),
	)
	require.Nil(t, err)
	require.Equal(t, 0, len(j.list()))

	require.Nil(t, ctx.Close())
	require.Equal(t, []string{"destroy second", "destroy first"}, j.list())

	require.Nil(t, ctx.Close())
	require.Equal(t, 2, len(j.list()))

}

func TestCreateFailureDestroysSingletons(t *testing.T) {

	j := new(journal)
	_, err := newContext(t,
		beans.WithDefinition("first", beans.NewDefinition(closerClass, prop("journal", beans.Ref("journal")))),
		beans.WithDefinition("broken", beans.NewDefinition(closerClass, prop("journal", beans.Ref("missing")))),
		beans.WithSingleton("journal", j),
	)
	require.True(t, errors.Is(err, beans.ErrUnresolvedReference))
	require.Equal(t, []string{"destroy first"}, j.list())

}

type endpoint struct {
	Host string `bean:"host"`
	Port int    `bean:"port"`
	Name string `bean:"name"`
	Path string `bean:"path"`
}

var endpointClass = reflect.TypeOf((*endpoint)(nil))

func TestPlaceholders(t *testing.T) {

	dir := t.TempDir()
	base := filepath.Join(dir, "base.env")
	local := filepath.Join(dir, "local.env")
	require.Nil(t, os.WriteFile(base, []byte("PORT=8080\nNAME=beans\n"), 0600))
	require.Nil(t, os.WriteFile(local, []byte("PORT=9090\n"), 0600))
	t.Setenv("BEANS_TEST_HOST", "example.org")

	ctx, err := newContext(t,
		beans.WithProperties(base, local),
		beans.WithDefinition("endpoint", beans.NewDefinition(endpointClass,
			prop("host", "${BEANS_TEST_HOST}"),
			prop("port", "${PORT}"),
			prop("name", "${NAME}-${PORT}"),
			prop("path", "${PATH_PREFIX:/api}"))),
	)
	require.Nil(t, err)
	defer ctx.Close()

	obj, err := ctx.Lookup("endpoint")
	require.Nil(t, err)
	e := obj.(*endpoint)
	require.Equal(t, "example.org", e.Host)
	require.Equal(t, 9090, e.Port)
	require.Equal(t, "beans-9090", e.Name)
	require.Equal(t, "/api", e.Path)

	_, err = newContext(t,
		beans.WithProperties(base),
		beans.WithDefinition("endpoint", beans.NewDefinition(endpointClass, prop("host", "${BEANS_TEST_UNDEFINED}"))),
	)
	require.True(t, errors.Is(err, beans.ErrInvalidDefinition))

	_, err = newContext(t, beans.WithProperties(filepath.Join(dir, "missing.env")))
	require.NotNil(t, err)

}

type level int

var levelClass = reflect.TypeOf(level(0))

type levels struct {
	*convert.Service
}

func (t *levels) PostConstruct() error {
	t.Service = convert.New()
	t.Add(convert.StringClass, levelClass, func(value interface{}, to reflect.Type) (interface{}, error) {
		switch value.(string) {
		case "low":
			return level(1), nil
		case "high":
			return level(3), nil
		}
		return nil, pkgerrors.Errorf("unknown level '%v'", value)
	})
	return nil
}

type alarm struct {
	Level level `bean:"level"`
	Retry int   `bean:"retry"`
}

var (
	levelsClass = reflect.TypeOf((*levels)(nil))
	alarmClass  = reflect.TypeOf((*alarm)(nil))
)

func TestConversionService(t *testing.T) {

	ctx, err := newContext(t,
		beans.WithDefinition(beans.ConversionServiceBeanName, beans.NewDefinition(levelsClass)),
		beans.WithDefinition("alarm", beans.NewDefinition(alarmClass, prop("level", "high"), prop("retry", "3"))),
	)
	require.Nil(t, err)
	defer ctx.Close()

	obj, err := ctx.Lookup("alarm")
	require.Nil(t, err)
	require.Equal(t, level(3), obj.(*alarm).Level)
	require.Equal(t, 3, obj.(*alarm).Retry)

	conv, err := ctx.Lookup(beans.ConversionServiceBeanName)
	require.Nil(t, err)
	require.Same(t, conv, ctx.Factory().Conversion())

	_, err = newContext(t,
		beans.WithDefinition("alarm", beans.NewDefinition(alarmClass, prop("level", "high"))),
	)
	require.True(t, errors.Is(err, beans.ErrConversion))

}

func TestParentContext(t *testing.T) {

	parent, err := newContext(t, beans.WithDefinition("storage", beans.NewDefinition(storageImplClass)))
	require.Nil(t, err)
	defer parent.Close()

	child, err := newContext(t,
		beans.WithParent(parent),
		beans.WithDefinition("configService", beans.NewDefinition(configServiceImplClass,
			prop("storage", beans.Ref("storage")))),
	)
	require.Nil(t, err)
	defer child.Close()

	require.NotNil(t, child.Parent())
	require.True(t, child.Contains("storage"))
	require.False(t, child.ContainsLocal("storage"))
	require.False(t, parent.Contains("configService"))

	storageInstance := parent.MustBean(StorageClass)
	require.Equal(t, storageInstance, child.MustBean(StorageClass))

	cs := child.MustBean(ConfigServiceClass).(*configServiceImpl)
	require.Same(t, storageInstance, cs.Storage)

}

type contextHolder struct {
	ctx beans.Context
}

func (t *contextHolder) SetContext(ctx beans.Context) error {
	t.ctx = ctx
	return nil
}

var contextHolderClass = reflect.TypeOf((*contextHolder)(nil))

func TestContextAware(t *testing.T) {

	ctx, err := newContext(t, beans.WithDefinition("holder", beans.NewDefinition(contextHolderClass)))
	require.Nil(t, err)
	defer ctx.Close()

	obj, err := ctx.Lookup("holder")
	require.Nil(t, err)
	require.Same(t, ctx, obj.(*contextHolder).ctx)

}

/**
	Adds the storage definition while the context is refreshed
 */
type registrar struct {
}

func (t *registrar) PostProcessBeanFactory(factory beans.ConfigurableBeanFactory) error {
	return factory.RegisterDefinition("storage", beans.NewDefinition(storageImplClass))
}

var registrarClass = reflect.TypeOf((*registrar)(nil))

func TestFactoryPostProcessorBean(t *testing.T) {

	ctx, err := newContext(t, beans.WithDefinition("registrar", beans.NewDefinition(registrarClass)))
	require.Nil(t, err)
	defer ctx.Close()

	require.True(t, ctx.ContainsLocal("storage"))
	_, ok := ctx.MustBean(StorageClass).(*storageImpl)
	require.True(t, ok)

	_, err = newContext(t, beans.WithPostProcessors(&registrar{}, struct{}{}))
	require.NotNil(t, err)

}

type recorder struct {
	mu    sync.Mutex
	names []string
}

func (t *recorder) PostProcessBeforeInitialization(bean interface{}, name string) (interface{}, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.names = append(t.names, name)
	return bean, nil
}

var recorderClass = reflect.TypeOf((*recorder)(nil))

func TestProcessorDefinition(t *testing.T) {

	ctx, err := newContext(t,
		beans.WithDefinition("recorder", beans.NewDefinition(recorderClass)),
		beans.WithDefinition("storage", beans.NewDefinition(storageImplClass)),
	)
	require.Nil(t, err)
	defer ctx.Close()

	obj, err := ctx.Lookup("recorder")
	require.Nil(t, err)
	require.Equal(t, []string{"storage"}, obj.(*recorder).names)
	require.Equal(t, 2, ctx.Factory().BeanPostProcessorCount())

	external := new(recorder)
	ctx, err = newContext(t,
		beans.WithPostProcessors(external),
		beans.WithDefinition("storage", beans.NewDefinition(storageImplClass)),
	)
	require.Nil(t, err)
	defer ctx.Close()
	require.Equal(t, []string{"storage"}, external.names)

}
